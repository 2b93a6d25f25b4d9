package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kontiki/avisos/server/store"
	"github.com/kontiki/avisos/server/whatsapp"
)

// NoticeOffsets are the days-before-expiration tiers, largest to smallest so
// the final notice (D-0) is always its own pass. Each pass matches exact
// expiration dates only, never a range.
var NoticeOffsets = []int{30, 15, 7, 1, 0}

const (
	statusSent  = "sent"
	statusError = "error"
)

// Delivery is one attempted notification within a run.
type Delivery struct {
	Tel      string `json:"tel"`
	Offset   int    `json:"d"`
	OK       bool   `json:"ok"`
	Template string `json:"plantilla"`
	Error    string `json:"error,omitempty"`
}

type RunResult struct {
	Today string     `json:"hoy"`
	Sent  []Delivery `json:"enviados"`
}

// Notifier funnels both the daily scheduled job and the manual HTTP trigger
// into the same dispatch pass.
type Notifier struct {
	store  store.Store
	sender whatsapp.Sender
	logg   *zap.SugaredLogger
	now    func() time.Time
}

func New(st store.Store, sender whatsapp.Sender, logg *zap.SugaredLogger) *Notifier {
	return &Notifier{store: st, sender: sender, logg: logg, now: time.Now}
}

// RunToday walks every notice tier for today's date and dispatches one
// template message per due extinguisher, recording an aviso per attempt.
// Transport and store failures are recorded and skipped; nothing aborts the
// run, and nothing is retried.
func (n *Notifier) RunToday(ctx context.Context) *RunResult {
	today := n.now().Format("2006-01-02")
	result := &RunResult{Today: today, Sent: []Delivery{}}

	for _, offset := range NoticeOffsets {
		target := n.now().AddDate(0, 0, offset).Format("2006-01-02")

		due, err := n.store.DueOnDate(ctx, target)
		if err != nil {
			n.logg.Errorf("due lookup for %s (D-%d) failed: %v", target, offset, err)
			continue
		}

		for _, item := range due {
			result.Sent = append(result.Sent, n.dispatch(ctx, item, offset, today))
		}
	}

	return result
}

func (n *Notifier) dispatch(ctx context.Context, item store.DueItem, offset int, today string) Delivery {
	template := whatsapp.TemplateReminder
	if offset == 0 {
		template = whatsapp.TemplateFinalNotice
	}

	ok, detail := n.sender.SendTemplate(
		item.Telefono,
		template,
		whatsapp.TemplateLang,
		[]string{item.Nombre, item.NroSerie, displayDate(item.Vencimiento)},
	)

	notice := store.Notice{
		MatafuegoID: item.MatafuegoID,
		FechaEnvio:  today,
		Plantilla:   fmt.Sprintf("%s (D-%d)", template, offset),
		Estado:      statusSent,
	}
	if !ok {
		notice.Estado = statusError
		notice.Error = &detail
	}

	if err := n.store.InsertNotice(ctx, notice); err != nil {
		n.logg.Errorf("aviso insert for matafuego %d failed: %v", item.MatafuegoID, err)
	}

	return Delivery{Tel: item.Telefono, Offset: offset, OK: ok, Template: template, Error: detail}
}

// displayDate renders YYYY-MM-DD as DD/MM/YYYY for message bodies.
func displayDate(ymd string) string {
	if len(ymd) > 10 {
		ymd = ymd[:10]
	}

	t, err := time.Parse("2006-01-02", ymd)
	if err != nil {
		return ymd
	}
	return t.Format("02/01/2006")
}
