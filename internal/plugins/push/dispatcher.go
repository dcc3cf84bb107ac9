package push

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gadzhilaev/smile-ai-tg/internal/domain"
	debuglog "github.com/gadzhilaev/smile-ai-tg/internal/log"
)

// Sender delivers one notification to one device token.
type Sender interface {
	Send(ctx context.Context, token string, n domain.Notification) error
}

const maxParallelSends = 4

// Dispatcher routes notifications to the sender of each token's platform.
type Dispatcher struct {
	senders map[domain.Platform]Sender
}

// NewDispatcher accepts nil senders; tokens of that platform then count as failed.
func NewDispatcher(fcm, apns Sender) *Dispatcher {
	d := &Dispatcher{senders: map[domain.Platform]Sender{}}
	if fcm != nil {
		d.senders[domain.PlatformAndroid] = fcm
	}
	if apns != nil {
		d.senders[domain.PlatformIOS] = apns
	}
	return d
}

func (d *Dispatcher) Notify(ctx context.Context, tokens []domain.DeviceToken, n domain.Notification) (ret domain.DispatchResult) {
	var mu sync.Mutex
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			ret.Failed++
			ret.Errors = append(ret.Errors, err)
			return
		}
		ret.Sent++
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSends)
	for _, t := range tokens {
		sender, ok := d.senders[t.Platform]
		if !ok {
			record(fmt.Errorf("%s push is not configured", t.Platform))
			continue
		}
		g.Go(func() error {
			if err := sender.Send(gctx, t.Token, n); err != nil {
				record(fmt.Errorf("%s token %s: %w", t.Platform, shorten(t.Token), err))
				return nil
			}
			debuglog.Debug(debuglog.Trace, "%s push delivered to %s\n", t.Platform, shorten(t.Token))
			record(nil)
			return nil
		})
	}
	_ = g.Wait()
	return
}

func shorten(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
