package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/deweykai/uftp/channel"
	"github.com/deweykai/uftp/ftp"
	"github.com/deweykai/uftp/rdt"
	"go.uber.org/zap"
)

// listen opens the server socket, inside cfg.Netns when set.
func listen(ctx context.Context, cfg *Config) (rdt.Channel, io.Closer, error) {
	var ch rdt.Channel
	var closer io.Closer
	err := channel.InNamespace(cfg.Netns, func() error {
		switch cfg.Network {
		case "scion":
			_, portStr, err := net.SplitHostPort(cfg.Listen)
			if err != nil {
				return err
			}
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return fmt.Errorf("listen port %q: %w", portStr, err)
			}
			conn, err := channel.ListenSCION(ctx, port)
			if err != nil {
				return err
			}
			ch, closer = conn, conn
		default:
			conn, err := channel.ListenUDP(cfg.Listen)
			if err != nil {
				return err
			}
			ch, closer = conn, conn
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return withLoss(cfg, ch), closer, nil
}

// withLoss wraps ch in the configured loss model.
func withLoss(cfg *Config, ch rdt.Channel) rdt.Channel {
	if !cfg.Loss.Enable {
		return ch
	}
	logger.Info("simulating loss",
		zap.Float64("good_to_bad", cfg.Loss.GoodToBad),
		zap.Float64("bad_to_good", cfg.Loss.BadToGood),
		zap.Float64("loss_good", cfg.Loss.LossGood),
		zap.Float64("loss_bad", cfg.Loss.LossBad))
	return channel.NewLossy(ch, cfg.LossModel(), cfg.Loss.Seed)
}

// transportOptions returns the rdt options shared by server and client and
// a closer for the trace file, if any.
func transportOptions(cfg *Config) ([]rdt.Option, func(), error) {
	opts := []rdt.Option{
		rdt.WithPolicy(cfg.Policy()),
		rdt.WithLogger(logger.Named("rdt")),
	}
	if cfg.TraceCSV == "" {
		return opts, func() {}, nil
	}
	f, err := os.Create(cfg.TraceCSV)
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts, rdt.WithTrace(f))
	return opts, func() { checkNonFatal(f.Close()) }, nil
}

func runServer(cfg *Config) error {
	ctx := context.Background()
	ch, closer, err := listen(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts, done, err := transportOptions(cfg)
	if err != nil {
		return err
	}
	defer done()

	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	srvOpts := []ftp.ServerOption{ftp.WithServerLogger(logger.Named("ftp"))}
	if codec != nil {
		srvOpts = append(srvOpts, ftp.WithServerFEC(codec))
	}
	srv, err := ftp.NewServer(rdt.NewEndpoint(ch, opts...), cfg.RootDir, srvOpts...)
	if err != nil {
		return err
	}
	logger.Info("serving",
		zap.String("network", cfg.Network),
		zap.String("listen", cfg.Listen),
		zap.String("root_dir", cfg.RootDir),
		zap.String("netns", cfg.Netns))
	check(srv.Serve())
	return nil
}
