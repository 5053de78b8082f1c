package main

import (
	"errors"
	"strings"

	"github.com/ZilDuck/blaze-marketplace/internal/config"
	"github.com/ZilDuck/blaze-marketplace/internal/entity"
	"github.com/ZilDuck/blaze-marketplace/internal/messenger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var ErrAmqpDisabled = errors.New("amqp is not enabled")

func events(c *cli.Context) error {
	history, err := apiClient.Events(c.Context, c.Uint64("since"))
	if err != nil {
		return err
	}
	for _, e := range history {
		printEvent(e)
	}

	return nil
}

func watch(c *cli.Context) error {
	cfg := config.Get().Amqp
	if !cfg.Enabled {
		return ErrAmqpDisabled
	}

	ctx, cancel := signalContext()
	defer cancel()

	m := messenger.NewMessenger(cfg.Uri, cfg.Exchange)
	defer func() { _ = m.Close() }()

	zap.L().With(zap.String("queue", c.String("queue")), zap.String("binding", c.String("binding"))).Info("Watching events")

	return m.ConsumeEvents(ctx, c.String("queue"), c.String("binding"), printEvent)
}

func printEvent(e entity.Event) {
	params := make([]string, 0, len(e.Params))
	for k, v := range e.Params {
		params = append(params, k+"="+v)
	}

	zap.L().With(
		zap.Uint64("sequence", e.Sequence),
		zap.String("txId", e.TxID),
		zap.String("contract", e.Contract.Hex()),
		zap.String("params", strings.Join(params, " ")),
	).Info(string(e.Type))
}
