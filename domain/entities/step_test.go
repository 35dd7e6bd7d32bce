package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRepeatStepValidate(t *testing.T) {
	field := ID("nameInput")
	body := []Step{Click(field), SendSpecialKey(field, KeyTab)}

	tests := []struct {
		name    string
		step    Step
		wantErr string
	}{
		{
			name: "until",
			step: RepeatUntil(body, ValueEquals(field, "x"), time.Second),
		},
		{
			name: "while",
			step: RepeatWhile(body, ValueEquals(field, ""), time.Second),
		},
		{
			name:    "empty body",
			step:    RepeatUntil(nil, ValueEquals(field, "x"), time.Second),
			wantErr: "requires a body",
		},
		{
			name:    "assertion in body",
			step:    RepeatUntil([]Step{Assert(Visible(field))}, ValueEquals(field, "x"), time.Second),
			wantErr: "only actions can be repeated",
		},
		{
			name:    "nested repeat",
			step:    RepeatWhile([]Step{RepeatUntil(body, Visible(field), 0)}, Visible(field), time.Second),
			wantErr: "only actions can be repeated",
		},
		{
			name:    "invalid body step",
			step:    RepeatUntil([]Step{SendSpecialKey(field, "F13")}, Visible(field), time.Second),
			wantErr: "body step 0",
		},
		{
			name:    "missing condition",
			step:    Step{Kind: StepRepeatWhile, Body: body, Timeout: time.Second},
			wantErr: "requires a condition",
		},
		{
			name:    "never visible",
			step:    RepeatWhile(body, NeverVisible(field, time.Second), time.Second),
			wantErr: "never_visible",
		},
		{
			name:    "negative timeout",
			step:    RepeatUntil(body, Visible(field), -time.Second),
			wantErr: "negative timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.step.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRepeatStepString(t *testing.T) {
	field := ID("nameInput")
	body := []Step{Click(field), Click(field)}

	assert.Equal(t, `repeat 2 steps until `+ValueEquals(field, "x").String(),
		RepeatUntil(body, ValueEquals(field, "x"), 0).String())
	assert.Equal(t, `repeat 2 steps while `+ValueEquals(field, "").String(),
		RepeatWhile(body, ValueEquals(field, ""), 0).String())
}
