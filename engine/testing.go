package engine

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/youtstadi/BotShkiperaPredlozhka/dialog"
	"github.com/youtstadi/BotShkiperaPredlozhka/modqueue"
	"github.com/youtstadi/BotShkiperaPredlozhka/settings"
	"github.com/youtstadi/BotShkiperaPredlozhka/transport"
)

const (
	testReviewChatID  int64 = -100200
	testPublishChatID int64 = -100300
)

// EngineTestFixture wires an engine against in-memory stores and a recording
// mock transport. Roster: admin 1, moderators 7 and 9.
func EngineTestFixture() Engine {
	logger := slog.Default()
	sets := settings.NewStore(logger, "")
	_ = sets.AddRole(settings.RoleAdmin, 1)
	_ = sets.AddRole(settings.RoleModerator, 7)
	_ = sets.AddRole(settings.RoleModerator, 9)

	queue := modqueue.NewQueue(logger, modqueue.NewMemItemStore(), modqueue.NewMemCountStore(), sets)
	dialogs := dialog.NewWorkflow(logger, dialog.NewMemStore())

	return Engine{
		Logger:      logger,
		Queue:       queue,
		Dialogs:     dialogs,
		Settings:    sets,
		Transport:   transport.NewMockClient(),
		ReviewDest:  transport.Destination{ChatID: testReviewChatID},
		PublishDest: transport.Destination{ChatID: testPublishChatID, ThreadID: 17},
		Dedupe:      expirable.NewLRU[string, bool](128, nil, 10*time.Minute),
	}
}
