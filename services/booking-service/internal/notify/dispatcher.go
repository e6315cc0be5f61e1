// Package notify delivers booking lifecycle events to customers (email, SMS)
// and to live dashboards (Redis pub/sub). Delivery is best effort.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/autobook/services/booking-service/internal/booking"
)

// Dispatcher implements booking.Notifier. Nil channels are skipped.
type Dispatcher struct {
	Renderer Renderer
	Email    EmailSender
	SMS      SMSSender
	Realtime *RealtimePublisher
	Logger   *slog.Logger
}

func (d *Dispatcher) Notify(ctx context.Context, evt booking.Event, v booking.View) error {
	msg, err := d.Renderer.Render(evt, v)
	if err != nil {
		return fmt.Errorf("render %s: %w", evt, err)
	}

	var errs []error
	if c := v.Customer; c != nil {
		if d.Email != nil && strings.TrimSpace(c.Email) != "" {
			if err := d.Email.Send(ctx, c.Email, msg.Subject, msg.Email); err != nil {
				errs = append(errs, fmt.Errorf("email: %w", err))
			}
		}
		if d.SMS != nil && strings.TrimSpace(c.Phone) != "" {
			if err := d.SMS.Send(ctx, c.Phone, msg.SMS); err != nil {
				errs = append(errs, fmt.Errorf("sms: %w", err))
			}
		}
	}
	if d.Realtime != nil {
		if err := d.Realtime.Publish(ctx, evt, v); err != nil {
			errs = append(errs, fmt.Errorf("realtime: %w", err))
		}
	}

	if d.Logger != nil && len(errs) == 0 {
		d.Logger.Debug("notifications sent", "event", string(evt), "appointment_id", v.ID)
	}
	return errors.Join(errs...)
}
