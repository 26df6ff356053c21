package peripheral

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestLogPrinter(t *testing.T) {
	p := NewLogPrinter(zap.NewNop(), 0)
	assert.Equal(t, 40, p.Width())
	assert.Empty(t, p.Offline())

	ctx := context.Background()
	assert.NoError(t, p.PrintLine(ctx, "Brewery Beer pint   3.50"))
	assert.NoError(t, p.Kickout(ctx))
	assert.NoError(t, p.Kickout(ctx))

	assert.Equal(t, 2, p.Kicks())
	assert.Equal(t, []string{"Brewery Beer pint   3.50"}, p.Lines())
}
