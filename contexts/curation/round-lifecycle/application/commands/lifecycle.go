package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"curator/contexts/curation/round-lifecycle/domain/entities"
	"curator/contexts/curation/round-lifecycle/ports"
)

// mainTopicIDToken is the placeholder in the child-thread template that gets
// replaced with the main thread's topic id after rendering.
const mainTopicIDToken = "((###MAIN_TOPIC_ID###))"

// LifecycleUseCase drives the round lifecycle operations. Every operation
// runs strictly sequentially under a per-round lock, acts on one frozen
// snapshot, and routes all mutations through a recorder so dry runs produce
// the exact decision trace of a real run.
type LifecycleUseCase struct {
	Provider   ports.RoundProvider
	Registry   ports.ThreadRegistry
	Polls      ports.PollStore
	Gateway    ports.DiscussionGateway
	Renderer   ports.Renderer
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Locks      *RoundLocks
	ForumID    int64
	SiteURL    string
	ListingURL string
	Logger     *slog.Logger
}

func (uc LifecycleUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func (uc LifecycleUseCase) newTraceID(ctx context.Context) string {
	if uc.IDGen == nil {
		return ""
	}
	id, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return ""
	}
	return id
}

func (uc LifecycleUseCase) mainThreadTitle(mode entities.GameMode, round entities.Round) string {
	return fmt.Sprintf("[%s] Project Loved: %s", mode.LongName(), round.Name)
}

func (uc LifecycleUseCase) childThreadTitle(mode entities.GameMode, nomination entities.Nomination) string {
	return fmt.Sprintf("[%s] %s", mode.LongName(), nomination.Song())
}

func (uc LifecycleUseCase) userLink(user entities.UserSummary) string {
	return fmt.Sprintf("[url=%s/users/%d]%s[/url]", uc.SiteURL, user.ID, user.Name)
}

// creatorCredit links a creator profile, or falls back to the bare name for
// placeholder-range accounts that have no real profile to link.
func (uc LifecycleUseCase) creatorCredit(creator entities.UserSummary) string {
	name := creator.Name
	if name == "" {
		name = "Unknown Creator"
	}
	if creator.ID >= entities.PlaceholderUserID {
		return name
	}
	return fmt.Sprintf("[url=%s/users/%d]%s[/url]", uc.SiteURL, creator.ID, name)
}

func (uc LifecycleUseCase) creatorCredits(creators []entities.UserSummary) string {
	names := make([]string, 0, len(creators))
	for _, creator := range creators {
		names = append(names, uc.creatorCredit(creator))
	}
	return joinList(names)
}

// thresholdText formats a threshold for display; an unset (zero) threshold
// shows as N/A rather than 0%.
func thresholdText(threshold float64) string {
	if threshold == 0 {
		return "N/A"
	}
	return fmt.Sprintf("%g%%", threshold*100)
}

// ratioText formats a vote ratio as a percentage for display.
func ratioText(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// joinList joins items with commas and a final "and", matching the prose
// style of the rendered posts.
func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

// uniqueNominators collects each nominator once across a mode's nominations,
// preserving first-seen order.
func uniqueNominators(nominations []entities.Nomination) []entities.UserSummary {
	seen := make(map[int64]struct{})
	var nominators []entities.UserSummary
	for _, nomination := range nominations {
		for _, nominator := range nomination.Nominators {
			if _, ok := seen[nominator.ID]; ok {
				continue
			}
			seen[nominator.ID] = struct{}{}
			nominators = append(nominators, nominator)
		}
	}
	return nominators
}

func (uc LifecycleUseCase) nominatorLinks(nominators []entities.UserSummary) string {
	links := make([]string, 0, len(nominators))
	for _, nominator := range nominators {
		links = append(links, uc.userLink(nominator))
	}
	return joinList(links)
}
