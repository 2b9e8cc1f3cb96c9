package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/Veraticus/statement-ledger/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPeriodProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewPeriodProgress(&buf, 2, false)
	fn := p.Func()

	fn(model.Period{Year: 2025, Month: time.January}, 1, 2)
	fn(model.Period{Year: 2025, Month: time.February}, 2, 2)
	p.Finish()

	assert.Contains(t, buf.String(), "2/2")
}

func TestPeriodProgress_HiddenForSinglePeriod(t *testing.T) {
	var buf bytes.Buffer
	p := NewPeriodProgress(&buf, 1, false)
	p.Func()(model.Period{Year: 2025, Month: time.January}, 1, 1)
	p.Finish()

	assert.Empty(t, buf.String())
}
