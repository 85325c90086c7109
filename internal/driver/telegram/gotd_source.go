package telegram

import (
	"context"
	"fmt"
	"log/slog"

	gotdtelegram "github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
)

// GotdSession runs an authenticated gotd session.
type GotdSession interface {
	// Run starts the session and executes fn within the connected lifecycle.
	Run(ctx context.Context, fn func(runCtx context.Context) error) error
}

// GotdSource wires gotd new-message updates into UpdateSource.
type GotdSource struct {
	session    GotdSession
	dispatcher tg.UpdateDispatcher
	peers      *PeerCache
	logger     *slog.Logger
	updates    chan Update
}

// NewGotdSource registers new-message handlers on dispatcher. The dispatcher
// must be the client's update handler (see gotdUpdateHandler).
func NewGotdSource(
	session GotdSession,
	dispatcher tg.UpdateDispatcher,
	peers *PeerCache,
	logger *slog.Logger,
	buffer int,
) (*GotdSource, error) {
	if session == nil {
		return nil, fmt.Errorf("new gotd source: nil session")
	}
	if peers == nil {
		return nil, fmt.Errorf("new gotd source: nil peer cache")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 1
	}

	source := &GotdSource{
		session:    session,
		dispatcher: dispatcher,
		peers:      peers,
		logger:     logger,
		updates:    make(chan Update, buffer),
	}
	dispatcher.OnNewMessage(func(ctx context.Context, entities tg.Entities, update *tg.UpdateNewMessage) error {
		return source.forward(ctx, entities, update.Message)
	})
	dispatcher.OnNewChannelMessage(func(ctx context.Context, entities tg.Entities, update *tg.UpdateNewChannelMessage) error {
		return source.forward(ctx, entities, update.Message)
	})

	return source, nil
}

// forward runs on the gotd update goroutine. A mapping failure is logged so
// one odd update cannot end the session.
func (s *GotdSource) forward(ctx context.Context, entities tg.Entities, raw tg.MessageClass) error {
	s.peers.RememberEntities(entities)

	update, accepted, err := s.mapSafely(raw, entities)
	if err != nil {
		s.logger.WarnContext(ctx, "telegram skipped unmappable message", "error", err)
		return nil
	}
	if !accepted {
		return nil
	}

	select {
	case s.updates <- update:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("forward telegram message %d: %w", update.MessageID, ctx.Err())
	}
}

func (s *GotdSource) mapSafely(raw tg.MessageClass, entities tg.Entities) (update Update, accepted bool, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("map telegram message panic: %v", recovered)
		}
	}()

	return mapMessage(raw, entities)
}

// Consume runs the gotd session and delivers mapped updates to handler.
func (s *GotdSource) Consume(ctx context.Context, handler UpdateHandler) error {
	if handler == nil {
		return fmt.Errorf("consume gotd updates: nil handler")
	}

	err := s.session.Run(ctx, func(runCtx context.Context) error {
		s.logger.InfoContext(runCtx, "telegram session ready")
		for {
			select {
			case <-runCtx.Done():
				return nil
			case update := <-s.updates:
				if err := handler(runCtx, update); err != nil {
					return fmt.Errorf("consume telegram message %d: %w", update.MessageID, err)
				}
			}
		}
	})
	if err != nil {
		return fmt.Errorf("consume gotd updates: %w", err)
	}

	return nil
}

// botSession authenticates a gotd client with a bot token before running fn.
type botSession struct {
	client   *gotdtelegram.Client
	botToken string
	logger   *slog.Logger
}

func (s botSession) Run(ctx context.Context, fn func(runCtx context.Context) error) error {
	if s.client == nil {
		return fmt.Errorf("run telegram bot session: nil client")
	}

	return s.client.Run(ctx, func(runCtx context.Context) error {
		status, err := s.client.Auth().Status(runCtx)
		if err != nil {
			return fmt.Errorf("check auth status: %w", err)
		}
		if status.Authorized {
			s.logger.InfoContext(runCtx, "telegram session restored from local storage")
		} else {
			if _, err := s.client.Auth().Bot(runCtx, s.botToken); err != nil {
				return fmt.Errorf("authenticate bot: %w", err)
			}
			s.logger.InfoContext(runCtx, "telegram authorized with bot token")
		}

		return fn(runCtx)
	})
}
