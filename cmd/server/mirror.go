package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/folashadea/Transparent-Government-Procurement-System/internal/persistence/objstore"
)

// mirrorRuntime publishes closed log segments and snapshots to object storage when
// PROCURE_MIRROR=true. The zero value is a disabled mirror.
type mirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *objstore.Mirror
}

func buildMirrorRuntime(dataDir string, logger *log.Logger) (*mirrorRuntime, error) {
	if !envBool("PROCURE_MIRROR", false) {
		return &mirrorRuntime{}, nil
	}
	cfg := objstore.Config{
		Endpoint:        strings.TrimSpace(os.Getenv("PROCURE_MIRROR_ENDPOINT")),
		Bucket:          strings.TrimSpace(os.Getenv("PROCURE_MIRROR_BUCKET")),
		Region:          strings.TrimSpace(os.Getenv("PROCURE_MIRROR_REGION")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("PROCURE_MIRROR_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("PROCURE_MIRROR_SECRET_ACCESS_KEY")),
	}
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, fmt.Errorf("PROCURE_MIRROR=true but PROCURE_MIRROR_ENDPOINT/BUCKET/ACCESS_KEY_ID/SECRET_ACCESS_KEY are not fully set")
	}
	client, err := objstore.New(cfg)
	if err != nil {
		return nil, err
	}
	m := objstore.NewMirror(client, objstore.MirrorConfig{
		DataDir: dataDir,
		Prefix:  strings.TrimSpace(os.Getenv("PROCURE_MIRROR_PREFIX")),
		Workers: envInt("PROCURE_MIRROR_WORKERS", 2),
		Logger:  logger,
	})
	return &mirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute segments so the public copy lags by minutes.
		mirror:       m,
	}, nil
}

func (r *mirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *mirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	r.mirror.Enqueue(localPath)
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
