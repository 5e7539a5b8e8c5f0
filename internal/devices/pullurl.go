package devices

import (
	"net/url"
	"os"
	"strings"
)

// DefaultRTSPPullPort is where the media gateway re-serves pushed streams
// as RTSP. Overridable through VIDEOMEMORY_RTSP_PULL_PORT.
const DefaultRTSPPullPort = "8554"

func rtspPullPort() string {
	if p := os.Getenv("VIDEOMEMORY_RTSP_PULL_PORT"); p != "" {
		return p
	}
	return DefaultRTSPPullPort
}

// DerivePullURL converts a push-side ingest URL into the RTSP URL the
// ingestor reads from. Push protocols (RTMP, SRT, WHIP) land on a media
// gateway that re-serves the stream over RTSP on the pull port. URLs that
// are already pull-side, or unrecognized, pass through unchanged.
func DerivePullURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	port := rtspPullPort()

	switch u.Scheme {
	case "rtmp", "whip":
		return "rtsp://" + u.Hostname() + ":" + port + u.Path
	case "srt":
		streamID := u.Query().Get("streamid")
		if streamID == "" {
			return rawURL
		}
		key := strings.TrimPrefix(streamID, "publish:")
		return "rtsp://" + u.Hostname() + ":" + port + "/" + key
	case "http", "https":
		if !strings.HasSuffix(u.Path, "/whip") {
			return rawURL
		}
		path := strings.TrimSuffix(u.Path, "/whip")
		return "rtsp://" + u.Hostname() + ":" + port + path
	default:
		return rawURL
	}
}
