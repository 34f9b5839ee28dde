package audit

import (
	"encoding/json"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/oklog/ulid/v2"

	"zaslon/internal/kv"
)

// Capacity — жёсткий потолок журнала: добавление записи №1001 вытесняет №1.
const Capacity = 1000

const storeKey = "audit:trail"

// EventKind — виды событий безопасности.
type EventKind string

const (
	EventConnect            EventKind = "connect"
	EventDisconnect         EventKind = "disconnect"
	EventProvision          EventKind = "provision"
	EventSubmission         EventKind = "submission"
	EventValidationFailed   EventKind = "validation_failed"
	EventTransmissionFailed EventKind = "transmission_failed"
	EventPolicyWarning      EventKind = "policy_warning"
	EventEncryptionDegraded EventKind = "encryption_degraded"
)

// Event — одна запись журнала. Append-only: после записи не меняется.
type Event struct {
	ID      string         `json:"id"`
	Time    time.Time      `json:"time"`
	Kind    EventKind      `json:"kind"`
	User    string         `json:"user,omitempty"`
	Client  string         `json:"client,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Trail — ограниченный append-only журнал, персистится во внешний KV.
// Append сериализован мьютексом, чтобы инвариант ёмкости держался
// и при конкурентных вызовах.
type Trail struct {
	mu      sync.Mutex
	kv      kv.Store
	events  []Event
	entropy io.Reader
	log     hclog.Logger
}

func NewTrail(store kv.Store, log hclog.Logger) *Trail {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	t := &Trail{
		kv:      store,
		entropy: ulid.Monotonic(src, 0),
		log:     log.Named("audit"),
	}
	t.load()
	return t
}

func (t *Trail) load() {
	raw, ok, err := t.kv.Get(storeKey)
	if err != nil || !ok {
		return
	}
	var events []Event
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		t.log.Warn("stored audit trail is corrupt, starting fresh", "error", err)
		return
	}
	if len(events) > Capacity {
		events = events[len(events)-Capacity:]
	}
	t.events = events
}

// Append добавляет событие. Никогда не возвращает ошибку и не паникует:
// аудит не должен ломать внешний результат операции.
func (t *Trail) Append(kind EventKind, user, client string, details map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := Event{
		ID:      ulid.MustNew(ulid.Timestamp(time.Now()), t.entropy).String(),
		Time:    time.Now().UTC(),
		Kind:    kind,
		User:    user,
		Client:  client,
		Details: details,
	}
	t.events = append(t.events, e)
	if len(t.events) > Capacity {
		t.events = t.events[len(t.events)-Capacity:]
	}
	t.persist()
}

func (t *Trail) persist() {
	b, err := json.Marshal(t.events)
	if err != nil {
		t.log.Warn("audit trail not persisted", "error", err)
		return
	}
	if err := t.kv.Set(storeKey, string(b)); err != nil {
		t.log.Warn("audit trail not persisted", "error", err)
	}
}

// Recent — последние события, новые первыми. limit<=0 — все.
func (t *Trail) Recent(limit int) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.events)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, t.events[i])
	}
	return out
}

func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.events)
}

// Oldest — самое старое событие (для проверки FIFO-вытеснения).
func (t *Trail) Oldest() (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return Event{}, false
	}
	return t.events[0], true
}
