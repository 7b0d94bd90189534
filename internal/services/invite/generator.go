package invite

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/convoy/internal/dependencies/clock"
	"github.com/mcoot/convoy/internal/dependencies/random"
	"github.com/mcoot/convoy/internal/model"
)

// Alphabet excludes look-alike symbols (0/O, 1/I/L) so codes survive
// being read aloud or copied by hand.
const Alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// DefaultCodeLength is the invite code length when none is configured
const DefaultCodeLength = 6

// Config holds configuration for the generator
type Config struct {
	CodeLength int

	// TimePrefixLength is how many leading characters encode the current
	// Unix second in the alphabet's radix. Zero means fully random codes.
	TimePrefixLength int
}

// DefaultConfig returns default generator configuration
func DefaultConfig() Config {
	return Config{
		CodeLength: DefaultCodeLength,
	}
}

// Invite is a freshly generated code and its scannable form
type Invite struct {
	Code   model.InviteCode
	QRCode string
}

// Generator produces invite codes and their QR data URIs
type Generator struct {
	random random.Random
	clock  clock.Clock
	qr     QREncoder
	logger *slog.Logger
	cfg    Config
}

// New creates a new Generator
func New(random random.Random, clock clock.Clock, qr QREncoder, logger *slog.Logger, cfg Config) *Generator {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.TimePrefixLength < 0 {
		cfg.TimePrefixLength = 0
	}
	if cfg.TimePrefixLength > cfg.CodeLength {
		cfg.TimePrefixLength = cfg.CodeLength
	}
	return &Generator{
		random: random,
		clock:  clock,
		qr:     qr,
		logger: logger,
		cfg:    cfg,
	}
}

// Generate returns a new invite code along with its QR data URI
func (g *Generator) Generate() (*Invite, error) {
	code, err := g.Code()
	if err != nil {
		return nil, err
	}
	qr, err := g.QRCode(code)
	if err != nil {
		return nil, err
	}
	return &Invite{Code: code, QRCode: qr}, nil
}

// Code returns a new invite code without rendering it.
//
// Each random byte is reduced modulo len(Alphabet). 256 is not a multiple
// of 31, so the first 8 symbols are drawn with probability 9/256 rather
// than 8/256.
func (g *Generator) Code() (model.InviteCode, error) {
	n := g.cfg.CodeLength
	prefix := g.cfg.TimePrefixLength

	out := make([]byte, n)
	g.writeTimePrefix(out[:prefix])

	b, err := g.random.Bytes(n - prefix)
	if err != nil {
		return "", fmt.Errorf("generate invite code: %w", err)
	}
	for i, v := range b {
		out[prefix+i] = Alphabet[int(v)%len(Alphabet)]
	}
	return model.InviteCode(out), nil
}

// QRCode renders code as an image data URI
func (g *Generator) QRCode(code model.InviteCode) (string, error) {
	uri, err := g.qr.Encode(string(code))
	if err != nil {
		g.logger.Error("failed to encode invite qr code", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %v", model.ErrEncoding, err)
	}
	return uri, nil
}

// writeTimePrefix fills dst with the low-order digits of the current Unix
// second, most significant first
func (g *Generator) writeTimePrefix(dst []byte) {
	if len(dst) == 0 {
		return
	}
	t := g.clock.Now().Unix()
	if t < 0 {
		t = -t
	}
	radix := int64(len(Alphabet))
	for i := len(dst) - 1; i >= 0; i-- {
		dst[i] = Alphabet[t%radix]
		t /= radix
	}
}
