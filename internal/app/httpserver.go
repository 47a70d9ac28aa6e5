package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/radpacs/telegram-study-bot/internal/metrics"
)

type HTTPServer struct {
	srv *http.Server
}

type Handlers struct {
	Webhook    *WebhookHandler
	Sign       *SignHandler
	Report     *ReportHandler
	Export     *ExportHandler
	VoiceAdmin *VoiceAdminHandler
	LogLevel   http.Handler // zap.AtomicLevel
}

func StartHTTP(ctx context.Context, addr string, database *sql.DB, h Handlers) *HTTPServer {
	mux := http.NewServeMux()

	mux.Handle("POST /telegram/webhook", h.Webhook)
	mux.Handle("POST /studies/{id}/sign", h.Sign)
	mux.HandleFunc("GET /studies/{id}/report", h.Report.Get)
	mux.HandleFunc("PUT /studies/{id}/report", h.Report.Put)
	mux.Handle("GET /export/studies.xlsx", h.Export)
	mux.Handle("POST /admin/voice/requeue", h.VoiceAdmin)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 800*time.Millisecond)
		defer cancel()
		t0 := time.Now()
		if err := database.PingContext(ctx); err != nil {
			http.Error(w, "db not ok: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		metrics.ObserveDBPing(time.Since(t0))
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", metrics.Handler())

	if h.LogLevel != nil {
		mux.Handle("/loglevel", h.LogLevel)
	}

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		_ = srv.ListenAndServe() // закрываем аккуратно при Shutdown
	}()

	go func() {
		<-ctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
	}()

	return &HTTPServer{srv: srv}
}
