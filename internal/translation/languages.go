package translation

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/unicode/norm"
)

var floresPattern = regexp.MustCompile(`^[a-z]{3}_[A-Z][a-z]{3}$`)

// FloresCode converts a BCP-47 tag ("yo", "en-GB") to the FLORES-200 form
// used by NLLB models ("yor_Latn"). FLORES codes are returned unchanged.
func FloresCode(tag string) (string, error) {
	tag = strings.TrimSpace(tag)
	if floresPattern.MatchString(tag) {
		return tag, nil
	}

	t, err := language.Parse(tag)
	if err != nil {
		return "", fmt.Errorf("invalid language tag %q: %w", tag, err)
	}

	base, conf := t.Base()
	if conf == language.No {
		return "", fmt.Errorf("unknown language %q", tag)
	}
	script, _ := t.Script()

	return fmt.Sprintf("%s_%s", base.ISO3(), script.String()), nil
}

// DisplayName returns the English name of a FLORES or BCP-47 code
func DisplayName(code string) string {
	base := strings.SplitN(code, "_", 2)[0]
	t, err := language.Parse(base)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(t); name != "" {
		return name
	}
	return code
}

// Normalize trims surrounding whitespace and composes the text to NFC so
// Yoruba tone marks compare equal regardless of how they were typed.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func buildPrompt(text string, opts Options) string {
	src := DisplayName(opts.Source)
	tgt := DisplayName(opts.Target)
	return fmt.Sprintf("Translate the following %s text to %s. Use correct %s tone marks. Respond with only the %s translation, nothing else.\n\n%s",
		src, tgt, tgt, tgt, text)
}
