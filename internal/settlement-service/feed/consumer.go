// Package feed consome o tópico de resultados de partidas e grava cada
// resultado no feed de resultados como o operador configurado.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/internal/chain"
	"github.com/radieske/parimutuel-settlement/internal/domain"
	"github.com/radieske/parimutuel-settlement/internal/shared/kafka"
	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// Reader é o lado de consumo do kafka.Reader com commit explícito
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ResultSetter grava resultados no feed
type ResultSetter interface {
	SetResult(ctx context.Context, caller common.Address, eventID domain.EventID, outcome domain.Outcome) (*chain.Receipt, error)
}

// Consumer lê mensagens de resultado e aplica no feed.
// Erros de domínio (duplicado, resultado inválido, operador errado) são
// confirmados e descartados; erros de infraestrutura são repetidos com backoff.
type Consumer struct {
	Log      *zap.Logger
	Reader   Reader
	Setter   ResultSetter
	Operator common.Address
	Backoff  time.Duration

	OnStage func(stage string) // métricas por estágio
}

func (c *Consumer) stage(s string) {
	if c.OnStage != nil {
		c.OnStage(s)
	}
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka fetch failed", zap.Error(err))
			c.stage("read_error")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			continue
		}
		c.stage("consumed")

		for {
			err = c.apply(ctx, m.Value)
			if err == nil || !retryable(err) {
				break
			}
			c.Log.Warn("result apply failed, retrying", zap.Int64("offset", m.Offset), zap.Error(err))
			c.stage("retry")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
		}

		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			c.stage("commit_error")
		}
	}
}

// apply decodifica e grava um resultado. Erros devolvidos aqui já foram contados.
func (c *Consumer) apply(ctx context.Context, value []byte) error {
	var msg events.MatchResult
	if err := json.Unmarshal(value, &msg); err != nil {
		c.Log.Warn("invalid match result", zap.Error(err))
		c.stage("decode_error")
		return fmt.Errorf("decode: %w", err)
	}
	eventID, outcome := domain.EventID(msg.EventID), domain.Outcome(msg.Outcome)

	_, err := c.Setter.SetResult(ctx, c.Operator, eventID, outcome)
	switch {
	case err == nil:
		c.stage("applied")
		c.Log.Info("match result applied",
			zap.Stringer("event", eventID),
			zap.Stringer("outcome", outcome),
			zap.String("source", msg.Source),
		)
		return nil
	case errors.Is(err, domain.ErrAlreadySet):
		c.stage("duplicate")
		c.Log.Debug("match result already set", zap.Stringer("event", eventID))
		return nil
	case domain.Code(err) != "internal":
		c.stage("rejected")
		c.Log.Warn("match result rejected", zap.Stringer("event", eventID), zap.Error(err))
		return err
	default:
		c.stage("apply_error")
		return err
	}
}

// retryable separa falhas transitórias (journal, contexto) das rejeições definitivas
func retryable(err error) bool {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syntax) || errors.As(err, &typ) {
		return false
	}
	return domain.Code(err) == "internal"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
