package secure

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	aead "github.com/hashicorp/go-kms-wrapping/v2/aead"

	"zaslon/internal/classify"
)

// Mode — режим шифрования. Degraded означает, что криптопримитив недоступен
// и значения ушли открытым текстом (availability over confidentiality).
type Mode string

const (
	ModeActive   Mode = "active"
	ModeDegraded Mode = "degraded"
)

const sessionKeyBytes = 32

// Cipher — сессионное AEAD-шифрование отдельных значений полей.
// Ключ генерируется лениво, живёт только в памяти и умирает на Destroy.
type Cipher struct {
	mu         sync.Mutex
	wrapper    *aead.Wrapper
	classifier *classify.Classifier
	digest     *Digest
	entropy    io.Reader
	log        hclog.Logger
}

func NewCipher(classifier *classify.Classifier, digest *Digest, log hclog.Logger) *Cipher {
	return NewCipherWithEntropy(classifier, digest, log, rand.Reader)
}

// NewCipherWithEntropy — источник ключевых байтов задаётся явно
// (для проверки поведения при отказе криптографии).
func NewCipherWithEntropy(classifier *classify.Classifier, digest *Digest, log hclog.Logger, entropy io.Reader) *Cipher {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Cipher{classifier: classifier, digest: digest, entropy: entropy, log: log.Named("cipher")}
}

// ensureKey — single-flight под мьютексом: на сессию существует
// максимум один ключ, повторные вызовы — no-op.
func (c *Cipher) ensureKey(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wrapper != nil {
		return nil
	}

	key := make([]byte, sessionKeyBytes)
	if _, err := io.ReadFull(c.entropy, key); err != nil {
		return fmt.Errorf("session key generation: %w", err)
	}

	w := aead.NewWrapper()
	if _, err := w.SetConfig(ctx, wrapping.WithKeyId("session")); err != nil {
		return fmt.Errorf("cipher config: %w", err)
	}
	if err := w.SetAesGcmKeyBytes(key); err != nil {
		return fmt.Errorf("cipher key: %w", err)
	}
	c.wrapper = w
	return nil
}

// Encrypt возвращает токен base64(nonce).base64(ciphertext); nonce свежий
// на каждый вызов. При отказе криптографии возвращает значение как есть
// и degraded=true — вызывающий решает, как это озвучить (обычно аудит-событием).
func (c *Cipher) Encrypt(ctx context.Context, value string) (token string, degraded bool) {
	if err := c.ensureKey(ctx); err != nil {
		c.log.Warn("encryption unavailable, passing value through", "error", err)
		return value, true
	}
	c.mu.Lock()
	w := c.wrapper
	c.mu.Unlock()
	if w == nil {
		return value, true
	}

	blob, err := w.Encrypt(ctx, []byte(value))
	if err != nil {
		c.log.Warn("encrypt failed, passing value through", "error", err)
		return value, true
	}
	return base64.RawURLEncoding.EncodeToString(blob.Iv) + "." +
		base64.RawURLEncoding.EncodeToString(blob.Ciphertext), false
}

// Decrypt — обратная операция для токена Encrypt. Работает только внутри
// той же сессии: ключ никуда не экспортируется.
func (c *Cipher) Decrypt(ctx context.Context, token string) (string, error) {
	c.mu.Lock()
	w := c.wrapper
	c.mu.Unlock()
	if w == nil {
		return "", fmt.Errorf("no session key")
	}

	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("malformed token")
	}
	iv, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", fmt.Errorf("malformed token nonce: %w", err)
	}
	ct, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("malformed token body: %w", err)
	}

	pt, err := w.Decrypt(ctx, &wrapping.BlobInfo{Iv: iv, Ciphertext: ct})
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// EncryptRecord: чувствительные непустые поля заменяются парой
// <поле>_encrypted + <поле>_hash, открытый ключ из записи убирается.
// Остальные поля копируются без изменения типа.
func (c *Cipher) EncryptRecord(ctx context.Context, record map[string]any) (map[string]any, Mode) {
	out := make(map[string]any, len(record))
	mode := ModeActive

	for name, value := range record {
		str := stringValue(value)
		if !c.classifier.IsSensitive(name) || str == "" {
			out[name] = value
			continue
		}
		token, degraded := c.Encrypt(ctx, str)
		if degraded {
			mode = ModeDegraded
		}
		out[name+"_encrypted"] = token
		out[name+"_hash"] = c.digest.Sum(str)
	}
	return out, mode
}

// Destroy сбрасывает сессионный ключ (на disconnect).
func (c *Cipher) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wrapper = nil
}

// Empty — пустое значение поля (nil или пустая строка после trim).
func Empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	default:
		return false
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
