// Package actions routes action requests produced by the ingestion
// engine: structured verbs run built-in handlers, free-text actions go
// through an external routing agent when one is wired in.
package actions

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/Clamepending/videomemory-sub000/internal/metrics"
)

// Supported verbs.
const (
	VerbSendEmail    = "send_email"
	VerbSendDiscord  = "send_discord_notification"
	VerbSendTelegram = "send_telegram_notification"
	VerbOpenDoor     = "open_door"
	VerbCloseDoor    = "close_door"
	VerbTurnOnLight  = "turn_on_light"
	VerbTurnOffLight = "turn_off_light"
	VerbPrintToUser  = "print_to_user"
)

// Result is the uniform handler outcome.
type Result struct {
	Status  string `json:"status"` // success | error
	Message string `json:"message"`
}

func success(msg string) Result { return Result{Status: "success", Message: msg} }
func failure(msg string) Result { return Result{Status: "error", Message: msg} }

// AgentRunner parses a free-text action into a verb and message. It is an
// external collaborator; the dispatcher never parses natural language
// itself.
type AgentRunner interface {
	Route(ctx context.Context, action string) (verb, message string, err error)
}

// Dispatcher executes actions. All handlers are idempotent-safe: hardware
// verbs drive a mock controller, notification verbs post at most once.
type Dispatcher struct {
	runner     AgentRunner
	hardware   *HardwareController
	httpClient *http.Client

	// Overridable in tests.
	telegramBaseURL string
}

func NewDispatcher(runner AgentRunner) *Dispatcher {
	return &Dispatcher{
		runner:          runner,
		hardware:        NewHardwareController(),
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		telegramBaseURL: "https://api.telegram.org",
	}
}

// Dispatch satisfies the ingestor's action sink. The io_id only provides
// log context.
func (d *Dispatcher) Dispatch(ctx context.Context, ioID, action string) {
	res := d.Run(ctx, action)
	log.Printf("[actions] io_id=%s action=%q status=%s: %s", ioID, action, res.Status, res.Message)
}

// Run resolves the action to a verb and executes it. A free-text action
// with no routing agent falls back to print_to_user.
func (d *Dispatcher) Run(ctx context.Context, action string) Result {
	verb, message := action, action

	if !d.isVerb(action) {
		if d.runner == nil {
			verb = VerbPrintToUser
		} else {
			v, msg, err := d.runner.Route(ctx, action)
			if err != nil || !d.isVerb(v) {
				log.Printf("[actions] routing agent failed for %q, printing instead: %v", action, err)
				verb = VerbPrintToUser
			} else {
				verb, message = v, msg
			}
		}
	}

	res := d.execute(ctx, verb, message)
	metrics.RecordAction(verb, res.Status)
	return res
}

func (d *Dispatcher) isVerb(s string) bool {
	switch s {
	case VerbSendEmail, VerbSendDiscord, VerbSendTelegram,
		VerbOpenDoor, VerbCloseDoor, VerbTurnOnLight, VerbTurnOffLight, VerbPrintToUser:
		return true
	}
	return false
}

func (d *Dispatcher) execute(ctx context.Context, verb, message string) Result {
	switch verb {
	case VerbSendEmail:
		return d.sendEmail(message)
	case VerbSendDiscord:
		return d.sendDiscord(ctx, message)
	case VerbSendTelegram:
		return d.sendTelegram(ctx, message)
	case VerbOpenDoor:
		return d.hardware.SetDoor(true)
	case VerbCloseDoor:
		return d.hardware.SetDoor(false)
	case VerbTurnOnLight:
		return d.hardware.SetLight(true)
	case VerbTurnOffLight:
		return d.hardware.SetLight(false)
	case VerbPrintToUser:
		log.Printf("[actions] %s", message)
		return success("printed to user")
	default:
		return failure("unknown action verb: " + verb)
	}
}
