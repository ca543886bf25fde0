package service

import (
	"encoding/base64"
	"html/template"
	"io"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"vnpay-broker/internal/domains/ticket/model"
)

const defaultQRSize = 256

var ticketTemplate = template.Must(template.New("ticket").Parse(`<!doctype html>
<html lang="vi">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>{{.Ticket.Title}} {{.Ticket.Code}}</title>
  <style>
    body { margin: 0; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif; background: #f5f7fb; color: #0f172a; }
    .card { max-width: 420px; margin: 32px auto; background: #fff; border-radius: 16px; padding: 24px; box-shadow: 0 8px 24px rgba(15, 23, 42, .08); }
    .qr { display: block; margin: 16px auto; width: 220px; height: 220px; }
    dt { font-size: 12px; color: #64748b; margin-top: 12px; }
    dd { margin: 0; font-size: 16px; }
    .code { font-family: monospace; letter-spacing: 2px; text-align: center; }
  </style>
</head>
<body>
  <main class="card" data-kind="{{.Ticket.Kind}}">
    <h1>{{.Ticket.Title}}</h1>
    {{if .QRImage}}<img class="qr" alt="QR {{.Ticket.Code}}" src="{{.QRImage}}" />{{end}}
    <p class="code" id="code">{{.Ticket.Code}}</p>
    <dl>
      {{if .Ticket.Event}}<dt>Sự kiện</dt><dd id="event">{{.Ticket.Event}}</dd>{{end}}
      {{if .Ticket.Holder}}<dt>Người giữ vé</dt><dd id="holder">{{.Ticket.Holder}}</dd>{{end}}
      {{if .Ticket.Showtime}}<dt>Suất chiếu</dt><dd id="showtime">{{.Ticket.Showtime}}</dd>{{end}}
      {{if .Ticket.Venue}}<dt>Địa điểm</dt><dd id="venue">{{.Ticket.Venue}}</dd>{{end}}
      {{if .Ticket.Seat}}<dt>Ghế</dt><dd id="seat">{{.Ticket.Seat}}</dd>{{end}}
      {{if .Ticket.Quantity}}<dt>Số lượng</dt><dd id="quantity">{{.Ticket.Quantity}}</dd>{{end}}
      {{with .Ticket.AmountLabel}}<dt>Thành tiền</dt><dd id="amount">{{.}}</dd>{{end}}
    </dl>
  </main>
</body>
</html>
`))

var errorTemplate = template.Must(template.New("ticket_error").Parse(`<!doctype html>
<html lang="vi">
<head><meta charset="utf-8" /><title>Không đọc được vé</title></head>
<body>
  <main class="card">
    <h1>Không đọc được vé</h1>
    <p id="message">{{.}}</p>
  </main>
</body>
</html>
`))

// Renderer writes ticket and booking pages
type Renderer struct {
	qrSize int
}

func NewRenderer(qrSize int) *Renderer {
	if qrSize <= 0 {
		qrSize = defaultQRSize
	}
	return &Renderer{qrSize: qrSize}
}

type ticketView struct {
	Ticket  *model.Ticket
	QRImage template.URL
}

// Render writes the HTML page for ticket. Every field is escaped by
// html/template; only the generated QR data URI is marked safe.
func (r *Renderer) Render(w io.Writer, ticket *model.Ticket) error {
	view := ticketView{Ticket: ticket}

	png, err := qrcode.Encode(ticket.Code, qrcode.Medium, r.qrSize)
	if err != nil {
		log.Warn().Err(err).Str("code", ticket.Code).Msg("QR image generation failed")
	} else {
		view.QRImage = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	return ticketTemplate.Execute(w, view)
}

// RenderError writes a minimal error page
func (r *Renderer) RenderError(w io.Writer, message string) error {
	return errorTemplate.Execute(w, message)
}
