package inbound

import "github.com/shandysiswandi/mailrelay/internal/pkg/router"

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/mail-api", end.Submit)
	r.GET("/generate-authcode", end.GenerateAuthCode)
	r.GET("/oauthcallback", end.OAuthCallback)
	r.GET("/health", end.Health)
}
