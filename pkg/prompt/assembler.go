// Package prompt assembles the provider-agnostic conversation sent to the
// LLM: system prompt, optional enrichment blobs, jailbreak preset, history,
// and the newest user prompt, in that fixed order.
package prompt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/conduitlabs/relay/pkg/chat"
	"github.com/conduitlabs/relay/pkg/skills"
)

const systemTemplate = "You are ChatGPT also known as ChatGPT, a large language model trained by OpenAI. " +
	"Strictly follow the users instructions. Knowledge cutoff: 2021-09-01 Current date: %s"

const searchInstructions = "Instructions: Using the provided web search results, write a comprehensive reply to " +
	"the next user query. Make sure to cite results using [[number](URL)] notation after the reference. " +
	"If the provided search results refer to multiple subjects with the same name, write separate answers " +
	"for each subject. Ignore your previous response if any."

// searchLimit is the number of ranked snippets requested per enrichment.
const searchLimit = 3

// Assembler builds conversations. Both enrichers are optional: a nil Searcher
// disables web search, a nil skills.Directory disables the skills blob, and a
// failing enricher is logged and skipped rather than failing the request.
type Assembler struct {
	presets  *Table
	searcher Searcher
	skills   skills.Directory
	logger   *zap.Logger
	now      func() time.Time
}

// NewAssembler creates an assembler. searcher and directory may be nil.
func NewAssembler(presets *Table, searcher Searcher, directory skills.Directory, logger *zap.Logger) *Assembler {
	return &Assembler{
		presets:  presets,
		searcher: searcher,
		skills:   directory,
		logger:   logger,
		now:      time.Now,
	}
}

// Input describes one conversation to assemble.
type Input struct {
	JailbreakKey   string
	History        []chat.Message
	Prompt         chat.Message
	InternetAccess bool
}

// Assemble produces the ordered conversation:
//
//	[system (+skills)] [search blob] [preset...] [history...] [prompt]
//
// Skills text concatenates onto the system prompt itself; search text becomes
// a separate user-role message. That asymmetry is deliberate and relied on by
// the frontends.
func (a *Assembler) Assemble(ctx context.Context, in Input) ([]chat.Message, error) {
	preset, err := a.presets.Lookup(in.JailbreakKey)
	if err != nil {
		return nil, err
	}

	system := fmt.Sprintf(systemTemplate, a.now().Format("2006-01-02"))
	if blob := a.skillsBlob(ctx); blob != "" {
		system += "\n\n" + blob
	}

	conversation := make([]chat.Message, 0, 3+len(preset)+len(in.History))
	conversation = append(conversation, chat.Message{Role: chat.RoleSystem, Content: system})

	if in.InternetAccess {
		if blob := a.searchBlob(ctx, in.Prompt.Content); blob != "" {
			conversation = append(conversation, chat.Message{Role: chat.RoleUser, Content: blob})
		}
	}

	conversation = append(conversation, preset...)
	conversation = append(conversation, in.History...)
	conversation = append(conversation, in.Prompt)

	return conversation, nil
}

// searchBlob fetches ranked snippets for the newest user message and formats
// them with the citation instructions. Failures degrade gracefully: the blob
// is skipped and the request proceeds without web context.
func (a *Assembler) searchBlob(ctx context.Context, query string) string {
	if a.searcher == nil {
		return ""
	}

	results, err := a.searcher.Search(ctx, query, searchLimit)
	if err != nil {
		a.logger.Warn("search enrichment failed, continuing without web context", zap.Error(err))
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	var blob strings.Builder
	for i, result := range results {
		fmt.Fprintf(&blob, "[%d] \"%s\"\nURL:%s\n\n", i, result.Snippet, result.Link)
	}
	fmt.Fprintf(&blob, "current date: %s\n\n%s", a.now().Format("02/01/06"), searchInstructions)

	return blob.String()
}

// skillsBlob formats the team-skills directory deterministically, one line
// per member in sorted user-key order. Lookup failures are logged and the
// blob is skipped.
func (a *Assembler) skillsBlob(ctx context.Context) string {
	if a.skills == nil {
		return ""
	}

	record, err := a.skills.Lookup(ctx)
	if err != nil {
		a.logger.Warn("skills lookup failed, continuing without skills context", zap.Error(err))
		return ""
	}
	if record.Empty() {
		return ""
	}

	keys := make([]string, 0, len(record.Identifiers))
	for key := range record.Identifiers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var blob strings.Builder
	blob.WriteString("Team skills directory:\n")
	for _, key := range keys {
		fmt.Fprintf(&blob, "- %s:", record.Identifiers[key])
		if soft := record.Soft[key]; len(soft) > 0 {
			fmt.Fprintf(&blob, " soft skills: %s;", strings.Join(soft, ", "))
		}
		hard := record.Hard[key]
		if len(hard.Programming) > 0 {
			fmt.Fprintf(&blob, " programming: %s;", strings.Join(hard.Programming, ", "))
		}
		if len(hard.Tools) > 0 {
			fmt.Fprintf(&blob, " tools: %s;", strings.Join(hard.Tools, ", "))
		}
		blob.WriteString("\n")
	}

	return strings.TrimRight(blob.String(), "\n")
}
