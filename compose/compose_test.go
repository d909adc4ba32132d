package compose

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/reengageai/reengage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

type fakeCompletions struct {
	calls  int
	params openai.ChatCompletionNewParams
	fn     func() (*openai.ChatCompletion, error)
}

func (f *fakeCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams,
	opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.calls++
	f.params = params
	return f.fn()
}

func completion(content string) *openai.ChatCompletion {
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func testLog() *logrus.Entry {
	return logrus.NewEntry(logrus.New())
}

var member = reengage.Member{
	UserId:   "user_1",
	Name:     "Ada",
	Email:    "ada@example.com",
	JoinedAt: time.Date(2023, 7, 4, 0, 0, 0, 0, time.UTC),
}

func TestComposeUsesCompletion(t *testing.T) {
	assert := assert.New(t)

	completions := &fakeCompletions{fn: func() (*openai.ChatCompletion, error) {
		return completion("  \"Hey Ada, we saved you a seat. Come say hi!\"\n"), nil
	}}
	composer := New(completions, DefaultConfig(), testLog(), nil)

	message := composer.Compose(context.Background(), member, "Gophers")
	assert.Equal("Hey Ada, we saved you a seat. Come say hi!", message)
	assert.Equal(1, completions.calls)
	assert.Equal(openai.ChatModel("gpt-4.1-mini"), completions.params.Model)
	assert.Equal(2, len(completions.params.Messages))
}

func TestComposeFallback(t *testing.T) {
	cases := []struct {
		name string
		fn   func() (*openai.ChatCompletion, error)
	}{
		{"error", func() (*openai.ChatCompletion, error) { return nil, errors.New("connection reset") }},
		{"timeout", func() (*openai.ChatCompletion, error) { return nil, context.DeadlineExceeded }},
		{"no choices", func() (*openai.ChatCompletion, error) { return &openai.ChatCompletion{}, nil }},
		{"blank", func() (*openai.ChatCompletion, error) { return completion("   "), nil }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			composer := New(&fakeCompletions{fn: tc.fn}, DefaultConfig(), testLog(), nil)
			message := composer.Compose(context.Background(), member, "")
			assert.Equal(t, Fallback("Ada"), message)
		})
	}
}

func TestComposeFallbackWithoutName(t *testing.T) {
	composer := New(&fakeCompletions{fn: func() (*openai.ChatCompletion, error) {
		return nil, errors.New("boom")
	}}, DefaultConfig(), testLog(), nil)

	message := composer.Compose(context.Background(), reengage.Member{UserId: "user_2"}, "")
	assert.True(t, strings.HasPrefix(message, "Hey there!"))
}

func TestComposeBreakerOpens(t *testing.T) {
	assert := assert.New(t)

	completions := &fakeCompletions{fn: func() (*openai.ChatCompletion, error) {
		return nil, errors.New("upstream down")
	}}
	composer := New(completions, DefaultConfig(), testLog(), nil)

	for i := 0; i < 8; i++ {
		assert.Equal(Fallback("Ada"), composer.Compose(context.Background(), member, ""))
	}
	// breaker trips after 5 consecutive failures and short-circuits the rest
	assert.Equal(5, completions.calls)
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "Hey Ada! We've noticed you haven't been around lately and wanted to check in. "+
		"The community misses you! Hope to see you back soon. 💙", Fallback("Ada"))
}

func TestPrompt(t *testing.T) {
	assert := assert.New(t)

	prompt := Prompt(member, "")
	assert.Contains(prompt, "- Name: Ada\n")
	assert.Contains(prompt, "- Joined: 7/4/2023\n")
	assert.Contains(prompt, "- Community: our community\n")
	assert.Contains(prompt, "under 280 characters")

	prompt = Prompt(reengage.Member{}, "Gophers")
	assert.Contains(prompt, "- Name: there\n")
	assert.Contains(prompt, "- Joined: unknown\n")
	assert.Contains(prompt, "- Community: Gophers\n")
}

func TestFit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("hello", fit("  hello \n", 280))
	assert.Equal("hello", fit(`"hello"`, 280))
	assert.Equal("hello", fit("“hello”", 280))
	assert.Equal("", fit(`""`, 280))

	long := strings.Repeat("come back soon ", 40)
	clipped := fit(long, 280)
	assert.LessOrEqual(utf8.RuneCountInString(clipped), 280)
	assert.True(strings.HasSuffix(clipped, "soon") || strings.HasSuffix(clipped, "back") ||
		strings.HasSuffix(clipped, "come"), clipped)

	emoji := strings.Repeat("💙", 300)
	assert.Equal(280, utf8.RuneCountInString(fit(emoji, 280)))
}
