package transcript

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertPunctuation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		style Style
		want  string
	}{
		{name: "full width cjk", input: "你好,世界!", style: StyleFullWidth, want: "你好，世界！"},
		{name: "full width leaves latin prose", input: "hello, world!", style: StyleFullWidth, want: "hello, world!"},
		{name: "full width mixed sentence", input: "React很好,really?", style: StyleFullWidth, want: "React很好，really?"},
		{name: "full width mark cluster", input: "真的吗?!", style: StyleFullWidth, want: "真的吗？！"},
		{name: "full width quotes pair", input: `他说"你好"`, style: StyleFullWidth, want: "他说“你好”"},
		{name: "full width decimal untouched", input: "价格3.14元", style: StyleFullWidth, want: "价格3.14元"},
		{name: "full width parentheses", input: "测试(一)", style: StyleFullWidth, want: "测试（一）"},
		{name: "half width cjk", input: "你好，世界！", style: StyleHalfWidth, want: "你好,世界!"},
		{name: "half width leaves isolated marks", input: "abc，def", style: StyleHalfWidth, want: "abc，def"},
		{name: "half width quotes", input: "他说“你好”", style: StyleHalfWidth, want: `他说"你好"`},
		{name: "spaces collapses", input: "你好，世界！", style: StyleSpaces, want: "你好 世界 "},
		{name: "spaces cluster is one space", input: "真的吗？！好", style: StyleSpaces, want: "真的吗 好"},
		{name: "spaces keeps existing gap", input: "你好， 世界", style: StyleSpaces, want: "你好 世界"},
		{name: "spaces leaves latin", input: "ok, fine.", style: StyleSpaces, want: "ok, fine."},
		{name: "hiragana anchors", input: "ありがとう!", style: StyleFullWidth, want: "ありがとう！"},
		{name: "hangul anchors", input: "안녕?", style: StyleFullWidth, want: "안녕？"},
		{name: "unknown style is identity", input: "你好,世界", style: Style("other"), want: "你好,世界"},
		{name: "empty", input: "", style: StyleFullWidth, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, ConvertPunctuation(tc.input, tc.style))
		})
	}
}

func TestConvertPunctuationIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"你好,世界!",
		"你好，世界！",
		"真的吗?!好的.",
		"a!，，你",
		`他说"hello"然后走了.`,
		"mixed 中文, english; 再见:",
		"(括号)and(parens)",
		"你.\"",
		"it's 我的 'thing'",
		"  spaced ， out  ",
	}
	styles := []Style{StyleFullWidth, StyleHalfWidth, StyleSpaces}

	for _, style := range styles {
		for _, input := range inputs {
			once := ConvertPunctuation(input, style)
			twice := ConvertPunctuation(once, style)
			require.Equal(t, once, twice, "style=%s input=%q", style, input)
		}
	}
}

func TestConvertPunctuationDeterministic(t *testing.T) {
	t.Parallel()

	input := `他说"你好",然后问:"去哪?"`
	first := ConvertPunctuation(input, StyleFullWidth)
	for i := 0; i < 20; i++ {
		require.Equal(t, first, ConvertPunctuation(input, StyleFullWidth))
	}
}

func TestParseStyle(t *testing.T) {
	t.Parallel()

	style, err := ParseStyle(" Full-Width ")
	require.NoError(t, err)
	require.Equal(t, StyleFullWidth, style)

	style, err = ParseStyle("halfwidth")
	require.NoError(t, err)
	require.Equal(t, StyleHalfWidth, style)

	style, err = ParseStyle("spaces")
	require.NoError(t, err)
	require.Equal(t, StyleSpaces, style)

	_, err = ParseStyle("wide")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown punctuation style")
}
