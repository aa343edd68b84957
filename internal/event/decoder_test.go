package event

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queue-keeper/internal/domain"
)

func TestDecode_StoreCreated(t *testing.T) {
	body := `{"id":"s1","s_id":1,"name":"Downtown Café","alias":"CP","company_id":"c1"}`

	ev, err := Decode([]byte(body), "store-create-event")
	require.NoError(t, err)

	created, ok := ev.(*domain.StoreCreated)
	require.True(t, ok, "expected *domain.StoreCreated, got %T", ev)
	assert.Equal(t, "s1", created.ID)
	assert.Equal(t, int64(1), created.DisplaySequence)
	assert.Equal(t, "Downtown Café", created.Name)
	require.NotNil(t, created.Alias)
	assert.Equal(t, "CP", *created.Alias)
	assert.Equal(t, "c1", created.CompanyID)
	assert.Equal(t, domain.RoutingKeyStoreCreate, ev.RoutingKey())
	assert.Equal(t, "s1", ev.StoreID())
}

func TestDecode_StoreUpdatedNullAlias(t *testing.T) {
	ev, err := Decode([]byte(`{"id":"missing","name":"X","alias":null}`), "store-update-event")
	require.NoError(t, err)

	updated, ok := ev.(*domain.StoreUpdated)
	require.True(t, ok)
	assert.Equal(t, "missing", updated.ID)
	assert.Equal(t, "X", updated.Name)
	assert.Nil(t, updated.Alias)
}

func TestDecode_StoreDeactivated(t *testing.T) {
	ev, err := Decode([]byte(`{"id":"s1","extra":true}`), "store-deactivate-event")
	require.NoError(t, err)

	_, ok := ev.(*domain.StoreDeactivated)
	assert.True(t, ok)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		routingKey string
		wantErr    error
	}{
		{
			name:       "unknown routing key",
			body:       `{"id":"s1"}`,
			routingKey: "store-delete-event",
			wantErr:    domain.ErrUnknownRoutingKey,
		},
		{
			name:       "unknown routing key wins over bad body",
			body:       `not json`,
			routingKey: "",
			wantErr:    domain.ErrUnknownRoutingKey,
		},
		{
			name:       "invalid json",
			body:       `{"id":`,
			routingKey: "store-create-event",
			wantErr:    domain.ErrMalformedBody,
		},
		{
			name:       "json null body",
			body:       `null`,
			routingKey: "store-deactivate-event",
			wantErr:    domain.ErrMalformedBody,
		},
		{
			name:       "json array body",
			body:       `[1,2]`,
			routingKey: "store-deactivate-event",
			wantErr:    domain.ErrMalformedBody,
		},
		{
			name:       "create missing company",
			body:       `{"id":"s1","s_id":1,"name":"A","alias":null}`,
			routingKey: "store-create-event",
			wantErr:    domain.ErrMissingField,
		},
		{
			name:       "create null sequence",
			body:       `{"id":"s1","s_id":null,"name":"A","company_id":"c1"}`,
			routingKey: "store-create-event",
			wantErr:    domain.ErrMissingField,
		},
		{
			name:       "create string sequence",
			body:       `{"id":"s1","s_id":"one","name":"A","company_id":"c1"}`,
			routingKey: "store-create-event",
			wantErr:    domain.ErrMissingField,
		},
		{
			name:       "update missing name",
			body:       `{"id":"s1","alias":"CP"}`,
			routingKey: "store-update-event",
			wantErr:    domain.ErrMissingField,
		},
		{
			name:       "update numeric alias",
			body:       `{"id":"s1","name":"A","alias":5}`,
			routingKey: "store-update-event",
			wantErr:    domain.ErrMissingField,
		},
		{
			name:       "deactivate empty id",
			body:       `{"id":""}`,
			routingKey: "store-deactivate-event",
			wantErr:    domain.ErrMissingField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.body), tt.routingKey)
			require.Error(t, err)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.wantErr)

			var de *domain.DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.routingKey, de.RoutingKey)
			assert.Equal(t, domain.KindDecode, domain.KindOf(err))
		})
	}
}

func TestDecode_WrongTypeNamesField(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		routingKey string
		field      string
	}{
		{"quoted sequence", `{"id":"s1","s_id":"7","name":"A","company_id":"c1"}`, "store-create-event", "s_id"},
		{"numeric id", `{"id":7}`, "store-deactivate-event", "id"},
		{"object alias", `{"id":"s1","name":"A","alias":{}}`, "store-update-event", "alias"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.body), tt.routingKey)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrMissingField)
			assert.NotErrorIs(t, err, domain.ErrMalformedBody)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}
