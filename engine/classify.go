package engine

import (
	"fmt"

	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

type classified struct {
	kind    modqueue.MediaKind
	fileRef string
}

// classifySubmission decides whether inbound content is accepted for review.
// Pure function of the message and a settings snapshot.
func classifySubmission(msg *transport.Message, cfg settings.Settings) (classified, error) {
	switch {
	case msg.Photo != nil:
		// no size gate for photos: the platform compresses them before
		// delivery, so a configurable limit would never trigger
		return classified{kind: modqueue.KindPhoto, fileRef: msg.Photo.FileRef}, nil
	case msg.Video != nil:
		// size unknown means it cannot be checked up front, so accept
		limit := int64(cfg.MaxVideoSizeMB) * 1024 * 1024
		if msg.Video.SizeBytes > 0 && msg.Video.SizeBytes > limit {
			return classified{}, &ValidationError{
				Reason: fmt.Sprintf("video is larger than the %dMB limit", cfg.MaxVideoSizeMB),
			}
		}
		return classified{kind: modqueue.KindVideo, fileRef: msg.Video.FileRef}, nil
	default:
		return classified{}, &ValidationError{
			Reason: "this content type is not supported yet, send a photo or a video",
		}
	}
}
