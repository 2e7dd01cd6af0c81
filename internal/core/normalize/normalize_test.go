package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "LegalFormSuffix", raw: "Tech Limited", want: "tech"},
		{name: "OnlyLegalForms", raw: "Holding Group", want: ""},
		{name: "Umlaut", raw: "Müller AG", want: "mueller"},
		{name: "SharpS", raw: "Großhandel", want: "grosshandel"},
		{name: "DecomposedUmlaut", raw: "Müller GmbH", want: "mueller"},
		{name: "Separators", raw: "Smith & Wesson/Partner+Sons", want: "smith wesson sons"},
		{name: "Backslash", raw: `Foo\Bar`, want: "foo bar"},
		{name: "CompoundLegalForm", raw: "Schmidt GmbH & Co. KG", want: "schmidt"},
		{name: "DottedLegalForm", raw: "Bäckerei Meier e.V.", want: "baeckerei meier"},
		{name: "GermanPhrase", raw: "Nordwind Gesellschaft mit beschränkter Haftung", want: "nordwind"},
		{name: "Accents", raw: "Société Générale S.A.", want: "societe generale"},
		{name: "AccentedLegalForm", raw: "Crème Sàrl", want: "creme"},
		{name: "SubstringNotRemoved", raw: "Agfa Cologne", want: "agfa cologne"},
		{name: "HyphenatedLegalForm", raw: "Incorporated-Wares Inc", want: "wares"},
		{name: "HyphenJoinedSuffix", raw: "Müller-AG", want: "mueller"},
		{name: "HyphenJoinedGmbH", raw: "Acme-GmbH", want: "acme"},
		{name: "CommaJoinedSuffix", raw: "Tech,Inc.", want: "tech"},
		{name: "CommaBetweenWords", raw: "Siemens AG,Munich", want: "siemens munich"},
		{name: "DotHyphenJoined", raw: "Foo Ltd.-Bar", want: "foo bar"},
		{name: "DotJoinedWords", raw: "Acme.Corp", want: "acme"},
		{name: "HyphenatedNoiseWord", raw: "Bosch-Deutschland", want: "bosch"},
		{name: "HyphenatedNameKept", raw: "Hewlett-Packard", want: "hewlett packard"},
		{name: "Apostrophe", raw: "L'Oréal S.A.", want: "loreal"},
		{name: "DottedGmbH", raw: "Weber G.m.b.H.", want: "weber"},
		{name: "NoiseWords", raw: "Siemens Deutschland Filiale (closed)", want: "siemens"},
		{name: "Whitespace", raw: "   Acme    Widgets   ", want: "acme widgets"},
		{name: "Punctuation", raw: "A.C.M.E. 'Widgets', Ltd.", want: "acme widgets"},
		{name: "Digits", raw: "3M Company", want: "3m"},
		{name: "NordicLetters", raw: "Ørsted Æble", want: "orsted aeble"},
		{name: "Empty", raw: "", want: ""},
		{name: "OnlyNoise", raw: " & / + ", want: ""},
		{name: "NonLatin", raw: "Газпром", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Tech Limited",
		"Müller AG",
		"G.m.b.H. Holding",
		"Gesellschaft mit Co beschränkter Haftung",
		"Crème Sàrl",
		"AG-Müller",
		"Deutschland und Österreich",
		"  Weird   \t spacing \n Corp ",
		"Ørsted A/S",
		"Café+Bistro\\Bar",
		"ÀÉÎÕÜ",
		"Müller-AG",
		"Tech,Inc.",
		"Siemens AG,Munich",
		"Foo Ltd.-Bar",
		"Incorporated-Wares Inc",
		"A.C.M.E.-Co",
	}
	for _, input := range inputs {
		once := Normalize(input)
		require.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestNormalizeOutputAlphabet(t *testing.T) {
	for _, input := range []string{"Ürün & Söhne", "L'Oréal S.A.", "日本 Steel"} {
		for _, r := range Normalize(input) {
			ok := r == ' ' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
			require.True(t, ok, "unexpected rune %q in %q", r, Normalize(input))
		}
	}
}

func TestVocabularies(t *testing.T) {
	require.Contains(t, LegalForms(), "gmbh")
	require.Contains(t, LegalForms(), "gesellschaft mit beschraenkter haftung")
	require.Contains(t, NoiseWords(), "filiale")

	forms := LegalForms()
	forms[0] = "mutated"
	require.NotEqual(t, "mutated", LegalForms()[0])
}

func TestTokens(t *testing.T) {
	require.Equal(t, []string{"alpha", "gamma"}, Tokens("alpha beta-gamma alpha", 5))
	require.Equal(t, []string{"ab", "cd"}, Tokens("ab cd", 1))
	require.Empty(t, Tokens("", 5))
}

func TestWords(t *testing.T) {
	require.Equal(t, []string{"acme", "widgets"}, Words("acme  widgets"))
}

func TestNGrams(t *testing.T) {
	require.Equal(t, []string{"acm", "cme"}, NGrams("acme", 3))
	require.Equal(t, []string{"ab"}, NGrams("ab", 3))
	require.Equal(t, []string{"aaa"}, NGrams("aaaa", 3))
	require.Nil(t, NGrams("", 3))
}
