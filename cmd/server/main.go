package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/archive"
	persistlog "github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/log"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/protocol"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/tuning"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/transport/httpapi"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		chainID    = flag.String("chain", "", "chain id (overrides tuning chain_id)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (receipts/audits + snapshot metadata)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if id := strings.TrimSpace(*chainID); id != "" {
		tune.ChainID = id
	}

	// Each process start is a fresh chain at genesis, so receipts of one run replay on their own.
	runDir := rundir.Path(*dataDir, tune.ChainID, rundir.NewID(time.Now()))
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		logger.Fatalf("create run dir: %v", err)
	}
	if err := tuning.Save(filepath.Join(runDir, "tuning.yaml"), tune); err != nil {
		logger.Fatalf("save run tuning: %v", err)
	}
	logger.Printf("chain=%s run dir=%s", tune.ChainID, runDir)

	// Optional: read-model index backend (does not affect replay).
	idx, err := openRuntimeIndex(runDir, tune.ChainID, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	mirror, err := buildMirrorRuntime(*dataDir, logger)
	if err != nil {
		logger.Fatalf("init object mirror: %v", err)
	}
	defer mirror.Close()
	mirror.Enqueue(filepath.Join(runDir, "tuning.yaml"))

	logOpts := persistlog.Options{}
	if mirror.enabled {
		logOpts.RotateLayout = mirror.rotateLayout
		logOpts.OnClose = mirror.Enqueue
	}
	receiptLog := persistlog.NewReceiptLogger(runDir, logOpts)
	auditLog := persistlog.NewAuditLogger(runDir, logOpts)
	defer receiptLog.Close()
	defer auditLog.Close()

	c := chain.New(tune.ChainConfig())
	c.SetReceiptLogger(multiReceiptLogger{a: receiptLog, b: idx})
	c.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	snapCh := make(chan snapshot.SnapshotV1, 2)
	c.SetSnapshotSink(snapCh)

	for _, comp := range tune.DeployList() {
		if err := c.Deploy(comp); err != nil {
			logger.Fatalf("deploy %s: %v", comp, err)
		}
		logger.Printf("deployed %s", comp)
	}

	ctx, cancel := signalContext()
	defer cancel()

	snapDone := make(chan struct{})
	go func() {
		defer close(snapDone)
		runSnapshotWriter(ctx, snapCh, runDir, idx, mirror, logger)
	}()

	chainDone := make(chan struct{})
	go func() {
		defer close(chainDone)
		if err := c.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("chain stopped: %v", err)
		}
	}()

	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("schemas: %v", err)
	}

	mux := http.NewServeMux()
	api := httpapi.NewServer(c, httpapi.Options{
		EnableAdmin: envBool("PROCURE_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		Validator:   validator,
		Logger:      logger,
		ExtraMetrics: func(w io.Writer) {
			writeIndexMetrics(w, tune.ChainID, idx)
			writeMirrorMetrics(w, mirror)
		},
	})
	api.Register(mux)
	mux.HandleFunc("/v1/ws", ws.NewServer(c, validator, logger).Handler())

	if envBool("PROCURE_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (PROCURE_ENABLE_PPROF_HTTP=false)")
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
	cancel()
	<-chainDone
	<-snapDone
}

func runSnapshotWriter(ctx context.Context, in <-chan snapshot.SnapshotV1, runDir string, idx runtimeIndex, mirror *mirrorRuntime, logger *log.Logger) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	dir := rundir.SnapshotDir(runDir)
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-in:
			path := snapshot.Path(dir, snap.Header.Height, snap.Header.Seq)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot write: %v", err)
				continue
			}
			logger.Printf("snapshot height=%d seq=%d path=%s", snap.Header.Height, snap.Header.Seq, filepath.Base(path))
			if idx != nil {
				idx.RecordSnapshot(path, snap)
			}
			mirror.Enqueue(path)
			if dir, ok, err := archive.ArchiveEpochSnapshot(runDir, path, snap); err != nil {
				logger.Printf("archive epoch %d: %v", snap.Header.Epoch, err)
			} else if ok {
				logger.Printf("archived epoch=%d height=%d dir=%s", snap.Header.Epoch, snap.Header.Height, dir)
				mirror.Enqueue(filepath.Join(dir, filepath.Base(path)))
				mirror.Enqueue(filepath.Join(dir, "meta.json"))
			}
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

type multiReceiptLogger struct {
	a chain.ReceiptLogger
	b chain.ReceiptLogger
}

func (m multiReceiptLogger) WriteReceipt(entry chain.Receipt) error {
	if m.a != nil {
		_ = m.a.WriteReceipt(entry)
	}
	if m.b != nil {
		_ = m.b.WriteReceipt(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a chain.AuditLogger
	b chain.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry chain.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}

func writeMirrorMetrics(w io.Writer, m *mirrorRuntime) {
	if m == nil || !m.enabled {
		return
	}
	s := m.mirror.Stats()
	fmt.Fprintf(w, "# HELP procure_mirror_queue_depth Object mirror queue depth.\n")
	fmt.Fprintf(w, "# TYPE procure_mirror_queue_depth gauge\n")
	fmt.Fprintf(w, "procure_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(w, "# HELP procure_mirror_dropped_total Files dropped because the mirror queue stayed full.\n")
	fmt.Fprintf(w, "# TYPE procure_mirror_dropped_total counter\n")
	fmt.Fprintf(w, "procure_mirror_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(w, "# HELP procure_mirror_upload_success_total Successful mirror uploads.\n")
	fmt.Fprintf(w, "# TYPE procure_mirror_upload_success_total counter\n")
	fmt.Fprintf(w, "procure_mirror_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(w, "# HELP procure_mirror_upload_fail_total Failed mirror uploads after retry.\n")
	fmt.Fprintf(w, "# TYPE procure_mirror_upload_fail_total counter\n")
	fmt.Fprintf(w, "procure_mirror_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(w, "# HELP procure_mirror_last_success_unix Unix time of the last successful upload.\n")
	fmt.Fprintf(w, "# TYPE procure_mirror_last_success_unix gauge\n")
	fmt.Fprintf(w, "procure_mirror_last_success_unix %d\n", s.LastSuccessUnix)
}
