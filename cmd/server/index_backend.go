package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/indexdb"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/rundir"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/snapshot"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/chain"
	"github.com/folashadea/Transparent-Government-Procurement-System/internal/sim/tuning"
)

type runtimeIndex interface {
	chain.ReceiptLogger
	chain.AuditLogger
	Close() error
	UpsertTuning(tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

func openRuntimeIndex(runDir, chainID string, disableDB bool, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("PROCURE_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(rundir.IndexPath(runDir))
	case "d1":
		endpoint := strings.TrimSpace(os.Getenv("PROCURE_INDEX_D1_INGEST_URL"))
		if endpoint == "" {
			return nil, fmt.Errorf("PROCURE_INDEX_BACKEND=d1 but PROCURE_INDEX_D1_INGEST_URL is empty")
		}
		return indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      endpoint,
			Token:         strings.TrimSpace(os.Getenv("PROCURE_INDEX_D1_TOKEN")),
			ChainID:       chainID,
			BatchSize:     envInt("PROCURE_INDEX_D1_BATCH_SIZE", 128),
			FlushInterval: time.Duration(envInt("PROCURE_INDEX_D1_FLUSH_MS", 500)) * time.Millisecond,
			Logger:        logger,
		})
	default:
		return nil, fmt.Errorf("unsupported PROCURE_INDEX_BACKEND: %s", backend)
	}
}

func writeIndexMetrics(w io.Writer, chainID string, idx runtimeIndex) {
	switch x := idx.(type) {
	case *indexdb.SQLiteIndex:
		s := x.Stats()
		fmt.Fprintf(w, "# HELP procure_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(w, "# TYPE procure_index_queue_depth gauge\n")
		fmt.Fprintf(w, "procure_index_queue_depth{chain=%q,backend=\"sqlite\"} %d\n", chainID, s.QueueDepth)
		fmt.Fprintf(w, "# HELP procure_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(w, "# TYPE procure_index_dropped_total counter\n")
		fmt.Fprintf(w, "procure_index_dropped_total{chain=%q,kind=\"receipt\"} %d\n", chainID, s.DropReceiptTotal)
		fmt.Fprintf(w, "procure_index_dropped_total{chain=%q,kind=\"audit\"} %d\n", chainID, s.DropAuditTotal)
		fmt.Fprintf(w, "procure_index_dropped_total{chain=%q,kind=\"snapshot\"} %d\n", chainID, s.DropSnapshotTotal)
	case *indexdb.D1Index:
		s := x.Stats()
		fmt.Fprintf(w, "# HELP procure_index_queue_depth Index writer backlog.\n")
		fmt.Fprintf(w, "# TYPE procure_index_queue_depth gauge\n")
		fmt.Fprintf(w, "procure_index_queue_depth{chain=%q,backend=\"d1\"} %d\n", chainID, s.QueueDepth)
		fmt.Fprintf(w, "# HELP procure_index_dropped_total Index writes dropped because the queue was full.\n")
		fmt.Fprintf(w, "# TYPE procure_index_dropped_total counter\n")
		fmt.Fprintf(w, "procure_index_dropped_total{chain=%q,kind=\"any\"} %d\n", chainID, s.QueueDroppedTotal)
		fmt.Fprintf(w, "# HELP procure_index_flush_fail_total Failed D1 batch flushes.\n")
		fmt.Fprintf(w, "# TYPE procure_index_flush_fail_total counter\n")
		fmt.Fprintf(w, "procure_index_flush_fail_total{chain=%q} %d\n", chainID, s.FlushFailTotal)
	}
}
