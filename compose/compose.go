package compose

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/reengageai/reengage"
	"github.com/reengageai/reengage/metrics"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// MaxMessageLength is the notification body limit the model is asked to respect.
const MaxMessageLength = 280

var ErrEmptyCompletion = errors.New("no message generated")

const systemPrompt = "You are a skilled community manager who writes warm, authentic messages."

// Completions is the subset of the chat completion API the composer needs.
type Completions interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams,
		opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

func DefaultConfig() Config {
	return Config{
		Model:       "gpt-4.1-mini",
		Temperature: 0.8,
		MaxTokens:   150,
		Timeout:     30 * time.Second,
	}
}

type Composer struct {
	completions Completions
	breaker     *gobreaker.CircuitBreaker
	config      Config
	log         *logrus.Entry
	metrics     *metrics.Collectors
}

var _ reengage.Composer = (*Composer)(nil)

func New(completions Completions, config Config, log *logrus.Entry, m *metrics.Collectors) *Composer {
	settings := gobreaker.Settings{
		Name:        "composer",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, from gobreaker.State, to gobreaker.State) {
			log.WithField("from", from.String()).
				WithField("to", to.String()).
				Warningln("Composer circuit breaker state changed.")
		},
	}
	return &Composer{
		completions: completions,
		breaker:     gobreaker.NewCircuitBreaker(settings),
		config:      config,
		log:         log,
		metrics:     m,
	}
}

// NewOpenAI creates a composer talking to an OpenAI compatible endpoint. Empty baseURL means the default one.
func NewOpenAI(apiKey string, baseURL string, config Config, log *logrus.Entry, m *metrics.Collectors) *Composer {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(1),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	client := openai.NewClient(opts...)
	return New(&client.Chat.Completions, config, log, m)
}

func (c *Composer) Compose(ctx context.Context, member reengage.Member, communityName string) string {
	message, err := c.generate(ctx, member, communityName)
	if err != nil {
		c.log.WithError(err).
			WithField("user_id", member.UserId).
			Warningln("Could not generate message, using fallback.")
		c.metrics.ComposerFallback()
		return Fallback(member.DisplayName())
	}
	return message
}

func (c *Composer) generate(ctx context.Context, member reengage.Member, communityName string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(member, communityName)),
		},
		MaxTokens:   openai.Int(c.config.MaxTokens),
		Temperature: openai.Float(c.config.Temperature),
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completions.New(ctx, params)
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	completion, ok := result.(*openai.ChatCompletion)
	if !ok || completion == nil || len(completion.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	message := fit(completion.Choices[0].Message.Content, MaxMessageLength)
	if message == "" {
		return "", ErrEmptyCompletion
	}
	return message, nil
}

// Prompt builds the instruction sent to the model.
func Prompt(member reengage.Member, communityName string) string {
	if communityName == "" {
		communityName = "our community"
	}
	joined := "unknown"
	if !member.JoinedAt.IsZero() {
		joined = member.JoinedAt.UTC().Format("1/2/2006")
	}

	var b strings.Builder
	b.WriteString("You are a friendly community manager. Generate a short, warm, and personalized " +
		"re-engagement message for a community member.\n\n")
	b.WriteString("Member details:\n")
	fmt.Fprintf(&b, "- Name: %s\n", member.DisplayName())
	fmt.Fprintf(&b, "- Joined: %s\n", joined)
	fmt.Fprintf(&b, "- Community: %s\n\n", communityName)
	b.WriteString("Requirements:\n")
	fmt.Fprintf(&b, "- Keep it under %d characters\n", MaxMessageLength)
	b.WriteString("- Be genuine and friendly, not salesy\n")
	b.WriteString("- Make them feel missed and valued\n")
	b.WriteString("- Include a subtle call-to-action to come back\n")
	b.WriteString("- Don't mention specific dates or time periods\n\n")
	b.WriteString("Write only the message, nothing else.")
	return b.String()
}

// Fallback is the message sent when generation is unavailable.
func Fallback(name string) string {
	return "Hey " + name + "! We've noticed you haven't been around lately and wanted to check in. " +
		"The community misses you! Hope to see you back soon. 💙"
}

// fit trims whitespace and wrapping quotes and clips the text to limit runes, preferring a word boundary.
func fit(message string, limit int) string {
	message = strings.TrimSpace(message)
	for _, q := range [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}} {
		if len(message) >= len(q[0])+len(q[1]) &&
			strings.HasPrefix(message, q[0]) && strings.HasSuffix(message, q[1]) {
			message = strings.TrimSpace(message[len(q[0]) : len(message)-len(q[1])])
		}
	}
	if utf8.RuneCountInString(message) <= limit {
		return message
	}

	runes := []rune(message)[:limit]
	clipped := string(runes)
	if i := strings.LastIndexAny(clipped, " \n\t"); i > limit/2 {
		clipped = clipped[:i]
	}
	return strings.TrimRight(clipped, " \n\t,;:-")
}
