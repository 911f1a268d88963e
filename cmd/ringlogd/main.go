// ringlogd keeps the last N lines sent by TCP clients and sends all of
// them back after every line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kjk/ringlog/backing"
	"github.com/kjk/ringlog/config"
	"github.com/kjk/ringlog/device"
	"github.com/kjk/ringlog/log"
	"github.com/kjk/ringlog/server"
	"github.com/kjk/ringlog/snapshot"
)

var (
	logf    = log.Logf
	logErrf = log.Errorf
)

func must(err error) {
	if err != nil {
		logErrf("%s", err)
		os.Exit(1)
	}
}

// formatSize formats a number of bytes e.g. 1.24 kB
func formatSize(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	case n >= 1024:
		return fmt.Sprintf("%.2f kB", float64(n)/1024)
	}
	return fmt.Sprintf("%d bytes", n)
}

func initLogging(cfg *config.Config) *log.Shipper {
	log.Verbose = cfg.Verbose
	var shipper *log.Shipper
	logConfig := &log.Config{
		Dir: cfg.LogDir,
	}
	if cfg.LogShipURL != "" {
		shipper = log.NewShipper(cfg.LogShipURL, cfg.LogShipApiKey)
		logConfig.OnLog = shipper.Ship
	}
	must(log.Init(logConfig))
	return shipper
}

func uploadSnapshot(cfg *config.Config, dev *device.Device) {
	// the main context is already cancelled
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	c, err := snapshot.CompressorFor(cfg.SnapshotCompression)
	if log.IfErrf(err) {
		return
	}
	up, err := snapshot.NewMinioUploader(ctx, &snapshot.MinioConfig{
		Access:   cfg.SnapshotAccess,
		Secret:   cfg.SnapshotSecret,
		Bucket:   cfg.SnapshotBucket,
		Endpoint: cfg.SnapshotEndpoint,
		Region:   cfg.SnapshotRegion,
	})
	if log.IfErrf(err) {
		return
	}
	d, err := dev.Content(ctx, nil)
	if log.IfErrf(err) {
		return
	}
	remotePath, err := snapshot.Take(ctx, up, c, d, time.Now())
	if log.IfErrf(err) {
		return
	}
	logf("uploaded snapshot of %s to %s/%s\n", formatSize(int64(len(d))), cfg.SnapshotBucket, remotePath)
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
	if cfg.PrintConfig {
		os.Stdout.Write(cfg.Pretty())
		return
	}

	shipper := initLogging(cfg)
	if shipper != nil {
		defer shipper.Stop()
	}
	defer log.Close()
	if cfg.Daemon {
		// the process manager daemonizes us
		logf("-d given, running in the foreground\n")
	}

	mirror, err := backing.Open(cfg.Backing, cfg.DataPath, cfg.KeepData)
	must(err)
	dev, err := device.New(device.Options{
		Capacity:   cfg.Capacity,
		MaxPending: cfg.MaxPending,
		Mirror:     mirror,
		Restore:    cfg.Restore,
	})
	must(err)
	log.Event("start", "port", cfg.Port, "capacity", cfg.Capacity, "backing", cfg.Backing)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logf("Caught signal, exiting\n")
	}()

	err = server.Run(ctx, dev, server.Options{
		Addr:           cfg.Addr(),
		ReadBufferSize: cfg.ReadBufferSize,
		MaxPending:     cfg.MaxPending,
		Timestamps:     cfg.Timestamps,
		Interval:       cfg.TimestampInterval,
	})
	log.IfErrf(err)

	// all connections and the injector are done
	if n, size, err := dev.Stats(context.Background()); err == nil {
		logf("retained %d records, %s\n", n, formatSize(size))
		log.Event("stop", "records", n, "size", size)
	}
	if cfg.SnapshotEnabled() {
		uploadSnapshot(cfg, dev)
	}
	log.IfErrf(dev.Close())
}
