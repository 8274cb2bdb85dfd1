package environment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifykit/pkg/environment"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want environment.Environment
	}{
		{name: "production", in: "production", want: environment.Production},
		{name: "production alias", in: "prod", want: environment.Production},
		{name: "staging alias", in: "Stage", want: environment.Staging},
		{name: "development", in: "development", want: environment.Development},
		{name: "empty defaults to development", in: "", want: environment.Development},
		{name: "unknown defaults to development", in: "qa", want: environment.Development},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, environment.Parse(tt.in))
		})
	}
}

func TestEnvironment_Predicates(t *testing.T) {
	t.Parallel()

	assert.True(t, environment.Parse("dev").IsDevelopment())
	assert.False(t, environment.Parse("dev").IsProduction())
	assert.True(t, environment.Parse(" PROD ").IsProduction())
	assert.False(t, environment.Staging.IsDevelopment())
}
