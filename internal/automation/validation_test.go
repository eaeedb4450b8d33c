package automation

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleValidate(t *testing.T) {
	valid := Rule{Watch: "tempA", Do: "fanA", DoValue: 1, Condition: BangBang{Threshold: 80}}

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr string
	}{
		{"valid", func(*Rule) {}, ""},
		{"empty watch", func(r *Rule) { r.Watch = "" }, "missing 'watch'"},
		{"empty do", func(r *Rule) { r.Do = "" }, "missing 'do'"},
		{"long watch", func(r *Rule) { r.Watch = strings.Repeat("x", MaxChannelIDLength+1) }, "exceeds"},
		{"NaN do_value", func(r *Rule) { r.DoValue = math.NaN() }, "do_value must be a finite number"},
		{"infinite do_value", func(r *Rule) { r.DoValue = math.Inf(1) }, "do_value must be a finite number"},
		{"no condition", func(r *Rule) { r.Condition = nil }, "missing 'type'"},
		{"inverted range", func(r *Rule) { r.Condition = Range{Min: 2, Max: 1} }, "greater than max"},
		{"watch equals do", func(r *Rule) { r.Do = r.Watch }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			tt.mutate(&rule)
			err := rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidRule)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
