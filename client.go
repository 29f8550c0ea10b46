package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/deweykai/uftp/channel"
	"github.com/deweykai/uftp/ftp"
	"github.com/deweykai/uftp/rdt"
	"github.com/netsec-ethz/scion-apps/pkg/pan"
	"go.uber.org/zap"
)

// dial connects to remote over the configured network.
func dial(ctx context.Context, cfg *Config, remote string) (rdt.Channel, io.Closer, error) {
	var conn *channel.Connected
	var err error
	switch cfg.Network {
	case "scion":
		sel := &channel.PathSelector{Pinned: pan.PathFingerprint(cfg.ScionPath)}
		conn, err = channel.DialSCION(ctx, remote, sel)
		if err == nil {
			logger.Debug("scion paths", zap.Int("paths", sel.PathCount()), zap.String("pinned", cfg.ScionPath))
		}
	default:
		conn, err = channel.DialUDP(remote)
	}
	if err != nil {
		return nil, nil, err
	}
	return withLoss(cfg, conn), conn, nil
}

func openClient(cfg *Config, remote string) (*ftp.Client, func(), error) {
	ch, closer, err := dial(context.Background(), cfg, remote)
	if err != nil {
		return nil, nil, err
	}
	opts, done, err := transportOptions(cfg)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	opts = append(opts, rdt.WithProgress(func(confirmed, total int) {
		logger.Info("progress", zap.Int("confirmed", confirmed), zap.Int("total", total))
	}))

	codec, err := cfg.Codec()
	if err != nil {
		done()
		closer.Close()
		return nil, nil, err
	}
	clOpts := []ftp.ClientOption{ftp.WithClientLogger(logger.Named("ftp"))}
	if codec != nil {
		clOpts = append(clOpts, ftp.WithFEC(codec))
	}
	c := ftp.NewClient(rdt.NewEndpoint(ch, opts...), nil, clOpts...)
	logger.Debug("connected", zap.String("network", cfg.Network), zap.String("remote", remote))
	return c, func() {
		done()
		checkNonFatal(closer.Close())
	}, nil
}

func runREPL(cfg *Config, remote string) error {
	c, closeFn, err := openClient(cfg, remote)
	if err != nil {
		return err
	}
	defer closeFn()
	r := newREPL(c, os.Stdin, os.Stdout, os.Stderr)
	return r.run()
}

// oneShot runs a single REPL line and ends the server session.
func oneShot(cfg *Config, remote, line string) error {
	c, closeFn, err := openClient(cfg, remote)
	if err != nil {
		return err
	}
	defer closeFn()
	r := newREPL(c, strings.NewReader(""), os.Stdout, os.Stderr)
	r.prompt = ""
	r.handleLine(line)
	checkNonFatal(c.Exit())
	if r.failed {
		return errCommandFailed
	}
	return nil
}
