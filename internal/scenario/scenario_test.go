package scenario

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kuitang/notes-e2e/internal/errs"
)

func noop(*Env) error { return nil }

func TestCatalog_HasEveryScenario(t *testing.T) {
	t.Parallel()
	cat := Catalog()

	want := []string{"TC001"}
	for n := 10; n <= 840; n += 10 {
		want = append(want, fmt.Sprintf("TC%03d", n))
	}
	var got []string
	for _, s := range cat.All() {
		got = append(got, s.ID)
	}
	assert.Equal(t, want, got)
}

func TestCatalog_ChannelsByRange(t *testing.T) {
	t.Parallel()
	for _, s := range Catalog().All() {
		var n int
		_, err := fmt.Sscanf(s.ID, "TC%d", &n)
		require.NoError(t, err)

		var want Channel
		switch {
		case n <= 380:
			want = API
		case n <= 630:
			want = WEB
		default:
			want = APIAndWeb
		}
		assert.Equal(t, want, s.Channel, s.Name())
	}
}

func TestCatalog_Tags(t *testing.T) {
	t.Parallel()
	for _, s := range Catalog().All() {
		assert.True(t, s.HasTag(Full), s.Name())
		assert.NotEqual(t, s.HasTag(Basic), s.HasTag(Negative), s.Name())
		// Negative titles name the broken input after a dash.
		assert.Equal(t, s.HasTag(Negative), strings.Contains(s.Title, " - "), s.Name())
	}
}

func TestRegistry_RejectsDuplicatesAndMissingRun(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	require.NoError(t, r.Register(basic("TC001", "one", API, noop)))

	err := r.Register(basic("TC001", "again", API, noop))
	assert.True(t, errs.Is(err, errs.Conflict))

	err = r.Register(Scenario{ID: "TC002", Title: "no run"})
	assert.True(t, errs.Is(err, errs.InvalidArgument))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Select(t *testing.T) {
	t.Parallel()
	r := NewRegistry()
	r.MustRegister(
		basic("TC010", "api basic", API, noop),
		negative("TC020", "api negative", API, noop),
		basic("TC400", "web basic", WEB, noop),
		negative("TC770", "both negative", APIAndWeb, noop),
	)

	ids := func(ss []Scenario) []string {
		var out []string
		for _, s := range ss {
			out = append(out, s.ID)
		}
		return out
	}

	assert.Equal(t, []string{"TC010", "TC020", "TC400", "TC770"}, ids(r.Select(Filter{})))
	assert.Equal(t, []string{"TC020", "TC770"}, ids(r.Select(Filter{Tags: []Tag{Negative}})))
	assert.Equal(t, []string{"TC020"}, ids(r.Select(Filter{Tags: []Tag{Full, Negative}, Channels: []Channel{API}})))
	assert.Equal(t, []string{"TC400", "TC770"}, ids(r.Select(Filter{IDs: []string{"TC4*", "TC77?"}})))
	assert.Empty(t, r.Select(Filter{IDs: []string{"TC9*"}}))

	s, ok := r.Lookup("TC400")
	require.True(t, ok)
	assert.Equal(t, "TC400 - web basic", s.Name())
}

func TestFilter_ValidateRejectsBadGlob(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Filter{IDs: []string{"TC0*"}}.Validate())
	assert.True(t, errs.Is(Filter{IDs: []string{"TC["}}.Validate(), errs.InvalidArgument))
}

func TestParseTagAndChannel(t *testing.T) {
	t.Parallel()
	tag, err := ParseTag("@negative")
	require.NoError(t, err)
	assert.Equal(t, Negative, tag)
	_, err = ParseTag("SMOKE")
	assert.Error(t, err)

	ch, err := ParseChannel("api_and_web")
	require.NoError(t, err)
	assert.Equal(t, APIAndWeb, ch)
	assert.True(t, ch.UsesBrowser())
	assert.False(t, API.UsesBrowser())
	_, err = ParseChannel("grpc")
	assert.Error(t, err)
}
