package synonym

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targetzero/coursebot/internal/data"
	"github.com/targetzero/coursebot/internal/stringutil"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	c, err := data.Default()
	require.NoError(t, err)
	tbl, err := NewTable(c)
	require.NoError(t, err)
	return NewResolver(tbl)
}

func TestResolveCanonicalKeys(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	for _, e := range r.Table().Entries() {
		code, ok := r.Resolve(stringutil.Normalize(e.FullName))
		assert.True(t, ok, "full name of %s", e.Code)
		assert.Equal(t, e.Code, code)

		code, ok = r.Resolve(stringutil.Normalize(e.Code))
		assert.True(t, ok, "code %s", e.Code)
		assert.Equal(t, e.Code, code)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		phrase string
		want   string
	}{
		{"SMSTS", "smsts"},
		{"NEBOSH-General", "nebosh-general"},
		{"nebosh  general!", "nebosh-general"},
		{"site supervisor", "sssts"},
		{"Temporary Works Co-ordinator", "twc"},
		{"temporary works coordinator", "twc"},
		{"mental health", "mhfa"},
		{"water hygiene pm", "eusr-water-pm"},
		{"iosh basic", "iosh-working"},
		{"S M S T S", "smsts"},
	}
	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			got, ok := r.Resolve(tt.phrase)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, miss := range []string{"", "   ", "nebosh", "cheapest smsts in chelmsford", "basket weaving"} {
		_, ok := r.Resolve(miss)
		assert.False(t, ok, "unexpected match for %q", miss)
	}
}

func TestSuggest(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	e, ok := r.Suggest("management")
	require.True(t, ok)
	assert.Equal(t, "smsts", e.Code)

	e, ok = r.Suggest("book me on sssts please")
	require.True(t, ok)
	assert.Equal(t, "sssts", e.Code)

	_, ok = r.Suggest("smsts")
	assert.False(t, ok, "direct matches never produce a suggestion")

	_, ok = r.Suggest("ab")
	assert.False(t, ok)

	_, ok = r.Suggest("basket weaving")
	assert.False(t, ok)
}

func TestUmbrella(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	m, ok := r.Umbrella("nebosh")
	require.True(t, ok)
	assert.True(t, m.Ambiguous())
	assert.Equal(t, []string{"NEBOSH General", "NEBOSH Construction"}, m.Labels())

	m, ok = r.Umbrella("NEBOSH construction course in May")
	require.True(t, ok)
	assert.Equal(t, "nebosh-construction", m.Code)

	m, ok = r.Umbrella("water hygiene morning")
	require.True(t, ok)
	assert.Equal(t, "eusr-water-am", m.Code)

	m, ok = r.Umbrella("temporary works")
	require.True(t, ok)
	assert.True(t, m.Ambiguous())
	assert.Len(t, m.Options, 2)

	m, ok = r.Umbrella("nebosh general or construction")
	require.True(t, ok)
	assert.True(t, m.Ambiguous(), "both options named")

	_, ok = r.Umbrella("smsts")
	assert.False(t, ok)
}

func TestFallback(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		name    string
		phrases []string
		want    string
		wantOK  bool
	}{
		{"Broad fragment", []string{"I need a first aid course"}, "mhfa", true},
		{"Embedded code", []string{"what about sssts instead"}, "sssts", true},
		{"Longest key wins", []string{"any nebosh general certificate courses"}, "nebosh-general", true},
		{"Equal length keeps declaration order", []string{"how many seats for smsts"}, "smsts", true},
		{"Second phrase", []string{"", "looking for environmental training"}, "seats", true},
		{"Nothing", []string{"Chelmsford", "in May"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Fallback(tt.phrases...)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMentions(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	tests := []struct {
		name   string
		phrase string
		want   string
		wantOK bool
	}{
		{"Everyday word ignored", "any seats left in Chelmsford?", "", false},
		{"Course name still counts", "how many seats for smsts", "smsts", true},
		{"Bare key resolves", "seats", "seats", true},
		{"Broad fragment", "looking for environmental training", "seats", true},
		{"Narrowed umbrella", "nebosh construction", "nebosh-construction", true},
		{"Ambiguous umbrella", "nebosh", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.Mentions(tt.phrase)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUmbrellaCovers(t *testing.T) {
	t.Parallel()
	m, ok := newTestResolver(t).Umbrella("nebosh")
	require.True(t, ok)
	assert.True(t, m.Covers("nebosh-general"))
	assert.False(t, m.Covers("smsts"))
	assert.False(t, m.Covers(""))
}

func TestDetect(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	code, ok := r.Detect("SMSTS")
	assert.True(t, ok)
	assert.Equal(t, "smsts", code)

	code, ok = r.Detect("iosh managing safely in june")
	assert.True(t, ok)
	assert.Equal(t, "iosh-managing", code)

	_, ok = r.Detect("nebosh")
	assert.False(t, ok, "ambiguous umbrella implies no single code")

	_, ok = r.Detect("yes")
	assert.False(t, ok)
}

func TestCodeForFullName(t *testing.T) {
	t.Parallel()
	r := newTestResolver(t)

	code, ok := r.Table().CodeForFullName("Site Management Safety Training Scheme")
	assert.True(t, ok)
	assert.Equal(t, "smsts", code)

	_, ok = r.Table().CodeForFullName("Unknown Course")
	assert.False(t, ok)
}

func TestNewTable_CanonicalCollision(t *testing.T) {
	t.Parallel()
	c := &data.Catalog{Categories: []data.Category{{
		Name: "A",
		Courses: []data.Course{
			{Code: "a", Name: "Same Name"},
			{Code: "b", Name: "same-name"},
		},
	}}}
	_, err := NewTable(c)
	assert.Error(t, err)
}
