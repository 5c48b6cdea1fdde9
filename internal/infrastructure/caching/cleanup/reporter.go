// Package cleanup provides ascii reporter
package cleanup

import (
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/orbgate-go/internal/domain/monetization"
	"github.com/AtRiskMedia/orbgate-go/internal/infrastructure/caching/interfaces"
)

const (
	cyan        = "\033[38;2;86;182;194m"  // One Dark Cyan: #56B6C2
	cyanBright  = "\033[38;2;97;228;240m"  // Brighter Cyan: #61E4F0
	dimCyan     = "\033[38;2;47;91;102m"   // Dim Cyan: #2F5B66
	grey        = "\033[38;2;110;118;129m" // Brighter Grey: #6E7681
	dimGrey     = "\033[38;2;75;82;99m"    // Darker Grey: #4B5263
	success     = "\033[38;2;62;130;144m"  // Dim Cyan: #3E8290
	warning     = "\033[38;2;229;192;123m" // One Dark Yellow: #E5C07B
	errorRed    = "\033[38;2;224;108;117m" // One Dark Red: #E06C75
	white       = "\033[38;2;171;178;191m" // One Dark Foreground: #ABB2BF
	whiteBright = "\033[38;2;220;225;230m" // Brighter White
	purple      = "\033[38;2;198;120;221m" // One Dark Purple: #C678DD
	dimPurple   = "\033[38;2;142;87;158m"  // Dim Purple: #8E579E
	reset       = "\033[0m"
	bold        = "\033[1m"
)

type Reporter struct {
	cache interfaces.Cache
}

func NewReporter(cache interfaces.Cache) *Reporter {
	return &Reporter{cache: cache}
}

func (r *Reporter) LogHeader(title string) {
	fmt.Printf("%s%s✓ %s %s\n", bold, cyan, strings.ToUpper(title), reset)
}

func (r *Reporter) LogSubHeader(text string) {
	fmt.Printf("%s%s░▒▓ %s %s\n", bold, dimCyan, text, reset)
}

func (r *Reporter) LogStepSuccess(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s⚡ %s%s...%s\n", dimGrey, grey, formattedMsg, reset)
}

func (r *Reporter) LogStage(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s✦ %s%s%s\n", success, bold, grey, formattedMsg, reset)
}

func (r *Reporter) LogSuccess(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s✦ %s%s%s\n", success, bold, white, formattedMsg, reset)
}

func (r *Reporter) LogError(message string, err error) {
	fmt.Printf("%s%s✖ ERROR: %s%s: %v%s\n", bold, errorRed, grey, message, err, reset)
}

func (r *Reporter) LogWarning(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s%s⚠ WARNING: %s%s%s\n", bold, warning, grey, formattedMsg, reset)
}

func (r *Reporter) LogInfo(message string, args ...any) {
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Printf("%s▶ %s%s%s\n", dimGrey, grey, formattedMsg, reset)
}

func (r *Reporter) GenerateTenantReport(tenantID string) string {
	var report strings.Builder
	timestamp := time.Now().UTC().Format("2006-01-02 15:04:05 MST")

	report.WriteString(fmt.Sprintf("%s%s▓ %s | Tenant: %s%s %s\n", bold, dimCyan, timestamp, whiteBright, tenantID, reset))

	sessionIDs := r.cache.GetAllSessionIDs(tenantID)

	var cached, valid, allowed int
	reasons := make(map[monetization.EnvelopeReason]int)
	now := time.Now().UTC()
	for _, sessionID := range sessionIDs {
		envelope, exists := r.cache.GetEnvelope(tenantID, sessionID)
		if !exists {
			continue
		}
		cached++
		if !envelope.Expired(now) {
			valid++
		}
		if envelope.AllowPaid {
			allowed++
		}
		reasons[envelope.Reason]++
	}

	var statusLine strings.Builder
	if len(sessionIDs) > 0 {
		statusLine.WriteString(fmt.Sprintf("%s✦ %sSessions: %s%d tracked%s",
			success, grey, cyanBright, len(sessionIDs), reset))
	} else {
		statusLine.WriteString(fmt.Sprintf("%s○ %sSessions: %sNONE%s",
			dimGrey, grey, dimGrey, reset))
	}

	statusLine.WriteString("  ")

	if cached > 0 {
		statusLine.WriteString(fmt.Sprintf("%s✦ %sEnvelopes: %s%d cached, %d valid%s",
			success, grey, white, cached, valid, reset))
	} else {
		statusLine.WriteString(fmt.Sprintf("%s○ %sEnvelopes: %sPRIMED%s",
			dimGrey, grey, cyan, reset))
	}
	report.WriteString(statusLine.String() + "\n")

	var decisionLine strings.Builder
	decisionLine.WriteString(fmt.Sprintf("%s✦ decisions:%s", purple, reset))

	formatDecisionItem := func(label string, count int) string {
		if count > 0 {
			return fmt.Sprintf(" %s%s:%s%d", dimPurple, label, white, count)
		}
		return fmt.Sprintf(" %s%s:%s--", dimGrey, label, dimGrey)
	}

	decisionLine.WriteString(formatDecisionItem("ready", allowed))
	decisionLine.WriteString(formatDecisionItem("sensitivity", reasons[monetization.ReasonSensitivityBlocked]))
	decisionLine.WriteString(formatDecisionItem("cooldown", reasons[monetization.ReasonCooldownActive]))
	decisionLine.WriteString(formatDecisionItem("attempt-limit", reasons[monetization.ReasonAttemptLimit]))
	decisionLine.WriteString(formatDecisionItem("low-readiness", reasons[monetization.ReasonReadinessLow]))

	report.WriteString(decisionLine.String() + "\n")

	return report.String()
}
