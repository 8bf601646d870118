package usecase

import (
	"errors"

	"github.com/shandysiswandi/mailrelay/internal/pkg/goerror"
	"github.com/shandysiswandi/mailrelay/internal/pkg/tokenbroker"
)

const (
	msgInvalidEmail = "INVALID_EMAIL"
	msgInvalidName  = "INVALID_NAME"
	msgInvalidMsg   = "INVALID_MSG"

	msgCredentialNotEstablished = "MAIL_CREDENTIAL_NOT_ESTABLISHED"
	msgCredentialRejected       = "MAIL_CREDENTIAL_REJECTED"
	msgCredentialUnavailable    = "MAIL_CREDENTIAL_UNAVAILABLE"
	msgSendFailed               = "MAIL_SEND_FAILED"
	msgQueueUnavailable         = "MAIL_QUEUE_UNAVAILABLE"

	msgInvalidCode     = "INVALID_CODE"
	msgInvalidState    = "INVALID_STATE"
	msgExchangeFailed  = "AUTHORIZATION_EXCHANGE_FAILED"
	msgPersistFailed   = "CREDENTIAL_PERSIST_FAILED"
	msgStateStoreError = "AUTHORIZATION_STATE_UNAVAILABLE"
)

// fieldOrder decides which failing field names the 422 message.
var fieldOrder = []string{"email", "name", "message"}

var fieldMessages = map[string]string{
	"email":   msgInvalidEmail,
	"name":    msgInvalidName,
	"message": msgInvalidMsg,
}

// tokenError maps a token broker failure to the error returned to the caller.
func tokenError(err error) error {
	switch {
	case errors.Is(err, tokenbroker.ErrNoRefreshCredential):
		return goerror.NewServer(err, msgCredentialNotEstablished)
	case errors.Is(err, tokenbroker.ErrRejected):
		return goerror.NewServer(err, msgCredentialRejected)
	default:
		return goerror.NewServer(err, msgCredentialUnavailable)
	}
}
