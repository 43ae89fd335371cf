package gateway

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/channel"
	"github.com/tgifai/newscast/internal/pkg/logs"
	"github.com/tgifai/newscast/internal/skill"
)

// CommandHandlerFunc processes a matched command and returns a text reply.
// An empty reply means no response should be sent.
type CommandHandlerFunc func(ctx context.Context, gw *Gateway, msg *channel.Message, args string) (string, error)

// Command describes a single channel-agnostic command.
type Command struct {
	Name        string // e.g. "/stations"
	Usage       string
	Description string
	Handler     CommandHandlerFunc
}

// CommandRouter matches incoming message text against registered command
// names and dispatches the first match.
type CommandRouter struct {
	commands map[string]*Command // key: lowercase command name
	mu       sync.RWMutex
}

func newCommandRouter() *CommandRouter {
	return &CommandRouter{commands: make(map[string]*Command, 8)}
}

func (r *CommandRouter) Register(cmd *Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(cmd.Name)] = cmd
}

// Match checks whether content starts with a known command. Commands match
// case-insensitively and may carry a trailing @botname suffix
// (e.g. "/stations@newsbot").
func (r *CommandRouter) Match(content string) (*Command, string, bool) {
	content = strings.TrimSpace(content)
	if content == "" || content[0] != '/' {
		return nil, "", false
	}

	fields := strings.SplitN(content, " ", 2)
	raw := strings.ToLower(fields[0])
	if idx := strings.Index(raw, "@"); idx > 0 {
		raw = raw[:idx]
	}

	r.mu.RLock()
	cmd, ok := r.commands[raw]
	r.mu.RUnlock()
	if !ok {
		return nil, "", false
	}

	args := ""
	if len(fields) > 1 {
		args = strings.TrimSpace(fields[1])
	}
	return cmd, args, true
}

// List returns the registered commands ordered by name.
func (r *CommandRouter) List() []*Command {
	r.mu.RLock()
	out := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ---------------------------------------------------------------------------
// Built-in commands
// ---------------------------------------------------------------------------

func registerBuiltinCommands(r *CommandRouter) {
	r.Register(&Command{
		Name:        "/start",
		Description: "Say hello and show what to ask for",
		Handler:     cmdStart,
	})
	r.Register(&Command{
		Name:        "/help",
		Description: "Show available commands",
		Handler:     cmdHelp,
	})
	r.Register(&Command{
		Name:        "/stations",
		Usage:       "[lang]",
		Description: "List the news stations for a language",
		Handler:     cmdStations,
	})
	r.Register(&Command{
		Name:        "/default",
		Usage:       "[station|clear]",
		Description: "Show, set or clear your default news station",
		Handler:     cmdDefault,
	})
	r.Register(&Command{
		Name:        "/status",
		Description: "Show gateway and prefetch status",
		Handler:     cmdStatus,
	})
}

func cmdStart(ctx context.Context, gw *Gateway, msg *channel.Message, _ string) (string, error) {
	return gw.deps.Skill.Dialogs().Render(gw.langFor(msg), skill.DialogIntro, nil), nil
}

func cmdHelp(_ context.Context, gw *Gateway, _ *channel.Message, _ string) (string, error) {
	var b strings.Builder
	b.WriteString("Ask for the news in plain words, e.g. \"play BBC news\".\n\nCommands:\n")
	for _, cmd := range gw.commands.List() {
		name := cmd.Name
		if cmd.Usage != "" {
			name += " " + cmd.Usage
		}
		fmt.Fprintf(&b, "  %s - %s\n", name, cmd.Description)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func cmdStations(_ context.Context, gw *Gateway, msg *channel.Message, args string) (string, error) {
	cat := gw.deps.Skill.Catalog()
	lang := catalog.NormalizeLang(args)
	if lang == "" {
		lang = gw.langFor(msg)
	}

	stations := cat.ByLang(lang)
	if len(stations) == 0 {
		stations = cat.ByLang(catalog.BaseLang(lang))
	}
	if len(stations) == 0 {
		return fmt.Sprintf("No stations for %q. Known languages: %s", lang, strings.Join(cat.Languages(), ", ")), nil
	}

	def := gw.deps.Skill.LangDefault(lang)
	var b strings.Builder
	fmt.Fprintf(&b, "Stations for %s:\n", lang)
	for _, st := range stations {
		marker := ""
		if st.ID == def {
			marker = " (default)"
		}
		fmt.Fprintf(&b, "• %s: %s%s\n", st.ID, st.DisplayTitle(), marker)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func cmdDefault(ctx context.Context, gw *Gateway, msg *channel.Message, args string) (string, error) {
	lang := gw.langFor(msg)
	dialogs := gw.deps.Skill.Dialogs()
	store := gw.deps.Settings

	switch {
	case args == "":
		if store != nil {
			if id := store.DefaultFeed(); id != "" {
				return fmt.Sprintf("Your default news station is %s.", id), nil
			}
		}
		if st, ok := gw.deps.Skill.DefaultStation(lang); ok {
			return fmt.Sprintf("No default chosen; %s is used for %s.", st.DisplayTitle(), lang), nil
		}
		return "No default news station.", nil

	case store == nil:
		return "Preferences are not available on this gateway.", nil

	case strings.EqualFold(args, "clear"):
		if err := store.ClearDefaultFeed(); err != nil {
			return "", err
		}
		return dialogs.Render(lang, skill.DialogDefaultCleared, nil), nil

	default:
		st, err := gw.deps.Skill.Catalog().Lookup(args)
		if err != nil {
			return fmt.Sprintf("Unknown station %q. Try /stations.", args), nil
		}
		if err := store.SetDefaultFeed(st.ID); err != nil {
			return "", err
		}
		logs.CtxInfo(ctx, "[cmd:default] default feed set to %s", st.ID)
		return dialogs.Render(lang, skill.DialogDefaultSet, map[string]string{"station": st.DisplayTitle()}), nil
	}
}

func cmdStatus(ctx context.Context, gw *Gateway, msg *channel.Message, _ string) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Channel: %s (%s)\n", msg.ChannelID, msg.ChannelType)
	fmt.Fprintf(&b, "Channels running: %d\n", gw.channels.Len())
	fmt.Fprintf(&b, "Conversations: %d\n", gw.msgQueue.Lanes())
	fmt.Fprintf(&b, "Stations: %d in %d languages\n",
		len(gw.deps.Skill.Catalog().Stations()), len(gw.deps.Skill.Catalog().Languages()))
	if !gw.startedAt.IsZero() {
		fmt.Fprintf(&b, "Uptime: %s\n", time.Since(gw.startedAt).Round(time.Second))
	}

	if gw.deps.Prefetch == nil {
		b.WriteString("Prefetch: disabled")
	} else {
		st := gw.deps.Prefetch.Status()
		fmt.Fprintf(&b, "Prefetch: next run %s", st.NextRunAt.Format(time.RFC3339))
		if st.Running {
			b.WriteString(", running now")
		}
		if st.Last != nil {
			fmt.Fprintf(&b, "\nLast prefetch: %d resolved, %d failed, %d skipped",
				st.Last.Resolved, st.Last.Failed, st.Last.Skipped)
		}
		if st.ConsecutiveErr > 0 {
			fmt.Fprintf(&b, "\nFailed runs in a row: %d", st.ConsecutiveErr)
		}
	}

	logs.CtxDebug(ctx, "[cmd:status] %s", b.String())
	return b.String(), nil
}
