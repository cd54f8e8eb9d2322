// Package rtc hands WebRTC configuration to browsers. Peers connect to each
// other directly; the server never opens a peer connection itself.
package rtc

import (
	"github.com/dkeye/Stage/internal/config"
	"github.com/pion/webrtc/v4"
)

const defaultSTUN = "stun:stun.l.google.com:19302"

// Configuration builds the RTCConfiguration clients use for screen-share
// peer connections.
func Configuration(cfg config.ICEConfig) webrtc.Configuration {
	urls := cfg.URLs
	if len(urls) == 0 {
		urls = []string{defaultSTUN}
	}
	server := webrtc.ICEServer{URLs: urls}
	if cfg.Username != "" {
		server.Username = cfg.Username
		server.Credential = cfg.Credential
		server.CredentialType = webrtc.ICECredentialTypePassword
	}
	return webrtc.Configuration{
		ICEServers:   []webrtc.ICEServer{server},
		BundlePolicy: webrtc.BundlePolicyMaxBundle,
	}
}
