// Package clock abstracts the current time so expiry logic can be tested with a fixed instant.
package clock
