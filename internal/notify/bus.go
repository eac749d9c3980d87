// Package notify distribui as notificações confirmadas para os assinantes
// registrados (Kafka, Redis, NATS, hub WS, log).
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/parimutuel-settlement/pkg/contracts/events"
)

// Subscriber recebe notificações já confirmadas, em ordem de commit.
type Subscriber interface {
	Name() string
	Notify(ctx context.Context, n events.Notification) error
}

// Bus entrega cada notificação a todos os assinantes. Cada assinante tem sua fila
// e goroutine: um sink lento não segura o núcleo nem os outros assinantes.
// Fila cheia descarta e conta (OnDrop); o histórico fica no journal.
type Bus struct {
	log      *zap.Logger
	queueLen int

	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	wg     sync.WaitGroup
	closed bool

	OnDelivered func(sub string)            // métricas
	OnDrop      func(sub string)            // métricas
	OnError     func(sub string, err error) // métricas
}

type subscription struct {
	sub   Subscriber
	queue chan events.Notification
	done  chan struct{}
}

func NewBus(log *zap.Logger, queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 1024
	}
	return &Bus{log: log, queueLen: queueLen, subs: make(map[int]*subscription)}
}

// Subscribe registra o assinante e devolve a função que cancela o registro.
func (b *Bus) Subscribe(s Subscriber) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return func() {}
	}
	id := b.nextID
	b.nextID++
	sub := &subscription{
		sub:   s,
		queue: make(chan events.Notification, b.queueLen),
		done:  make(chan struct{}),
	}
	b.subs[id] = sub
	b.wg.Add(1)
	go b.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub.queue)
			}
			b.mu.Unlock()
			<-sub.done
		})
	}
}

// Publish implementa chain.Publisher; nunca bloqueia.
func (b *Bus) Publish(_ context.Context, batch []events.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, n := range batch {
		for _, s := range b.subs {
			select {
			case s.queue <- n:
			default:
				b.log.Warn("notification dropped", zap.String("subscriber", s.sub.Name()), zap.String("type", n.Type))
				if b.OnDrop != nil {
					b.OnDrop(s.sub.Name())
				}
			}
		}
	}
}

func (b *Bus) run(s *subscription) {
	defer b.wg.Done()
	defer close(s.done)
	for n := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.sub.Notify(ctx, n)
		cancel()
		if err != nil {
			b.log.Warn("subscriber failed",
				zap.String("subscriber", s.sub.Name()),
				zap.String("type", n.Type),
				zap.Uint64("seq", n.Seq),
				zap.Error(err),
			)
			if b.OnError != nil {
				b.OnError(s.sub.Name(), err)
			}
			continue
		}
		if b.OnDelivered != nil {
			b.OnDelivered(s.sub.Name())
		}
	}
}

// Close drena as filas pendentes e encerra os assinantes.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, s := range b.subs {
		close(s.queue)
		delete(b.subs, id)
	}
	b.mu.Unlock()
	b.wg.Wait()
}
