package bot

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pscheid92/fortyfive/internal/fortyfive"
)

// Prefix is the only command the bot answers to.
const Prefix = "!45"

// invisibleTag is appended by some chat clients to defeat duplicate-message
// filters. It is never part of a command.
const invisibleTag = "\U000E0000"

var (
	ErrNotForUs          = errors.New("not a !45 command")
	ErrUnknownSubcommand = errors.New("unknown subcommand")
	ErrInvalidArguments  = errors.New("invalid arguments")
)

// Command is the closed set of !45 subcommands.
type Command interface {
	// Name is the subcommand as typed; used for metrics and tracing.
	Name() string
	moderatorOnly() bool
}

type (
	Generate      struct{}
	Best          struct{}
	Worst         struct{}
	PersonalBest  struct{ Login string }
	PersonalWorst struct{ Login string }
	HallOfFame    struct{ Epoch *int64 }
	Timeout       struct {
		Login string
		Secs  int64
	}
	Untimeout struct{ Login string }
)

func (Generate) Name() string      { return "gen" }
func (Best) Name() string          { return "best" }
func (Worst) Name() string         { return "worst" }
func (PersonalBest) Name() string  { return "pb" }
func (PersonalWorst) Name() string { return "pw" }
func (HallOfFame) Name() string    { return "hof" }
func (Timeout) Name() string       { return "timeout" }
func (Untimeout) Name() string     { return "untimeout" }

func (Generate) moderatorOnly() bool      { return false }
func (Best) moderatorOnly() bool          { return false }
func (Worst) moderatorOnly() bool         { return false }
func (PersonalBest) moderatorOnly() bool  { return false }
func (PersonalWorst) moderatorOnly() bool { return false }
func (HallOfFame) moderatorOnly() bool    { return false }
func (Timeout) moderatorOnly() bool       { return true }
func (Untimeout) moderatorOnly() bool     { return true }

// Tokenize splits a chat message on whitespace and drops invisible tags.
func Tokenize(text string) []string {
	var tokens []string
	for token := range strings.FieldsSeq(text) {
		if token == invisibleTag {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}

// Parse maps tokens to a Command. Missing subcommands default to gen. Extra,
// missing or malformed arguments are errors. Arguments starting with "-" are
// rejected.
func Parse(tokens []string) (Command, error) {
	if len(tokens) == 0 || tokens[0] != Prefix {
		return nil, ErrNotForUs
	}
	if len(tokens) == 1 {
		return Generate{}, nil
	}

	sub, args := tokens[1], tokens[2:]
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return nil, fmt.Errorf("%w: option-like argument %q", ErrInvalidArguments, arg)
		}
	}

	switch sub {
	case "gen":
		return noArgs(Generate{}, args)
	case "best":
		return noArgs(Best{}, args)
	case "worst":
		return noArgs(Worst{}, args)
	case "pb":
		login, err := optionalArg(args)
		return PersonalBest{Login: login}, err
	case "pw":
		login, err := optionalArg(args)
		return PersonalWorst{Login: login}, err
	case "hof":
		return parseHallOfFame(args)
	case "timeout":
		return parseTimeout(args)
	case "untimeout":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: untimeout takes exactly one login", ErrInvalidArguments)
		}
		return Untimeout{Login: args[0]}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSubcommand, sub)
	}
}

func noArgs(cmd Command, args []string) (Command, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("%w: %s takes no arguments", ErrInvalidArguments, cmd.Name())
	}
	return cmd, nil
}

func optionalArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", fmt.Errorf("%w: expected at most one argument", ErrInvalidArguments)
	}
}

func parseHallOfFame(args []string) (Command, error) {
	raw, err := optionalArg(args)
	if err != nil || raw == "" {
		return HallOfFame{}, err
	}

	epoch, err := parseCount(raw)
	if err != nil {
		return nil, err
	}
	return HallOfFame{Epoch: &epoch}, nil
}

func parseTimeout(args []string) (Command, error) {
	switch len(args) {
	case 1:
		return Timeout{Login: args[0], Secs: fortyfive.DefaultTimeoutSecs}, nil
	case 2:
		secs, err := parseCount(args[1])
		if err != nil {
			return nil, err
		}
		if secs > fortyfive.MaxTimeoutSecs {
			return nil, fmt.Errorf("%w: timeout of %d seconds is too long", ErrInvalidArguments, secs)
		}
		return Timeout{Login: args[0], Secs: secs}, nil
	default:
		return nil, fmt.Errorf("%w: timeout takes a login and optional seconds", ErrInvalidArguments)
	}
}

// parseCount parses a non-negative integer that fits an int64.
func parseCount(raw string) (int64, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || n > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidArguments, raw)
	}
	return int64(n), nil
}
