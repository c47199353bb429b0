package translation

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eum-live/caption-pipeline/internal/domain/entities"
	"github.com/eum-live/caption-pipeline/internal/domain/repositories"
	"github.com/eum-live/caption-pipeline/internal/infrastructure/cache"
	"github.com/eum-live/caption-pipeline/internal/usecase/language"
)

// Executor is the caching translation executor the orchestrator calls once
// per distinct target language
type Executor interface {
	TranslateWithCache(ctx context.Context, text, source, target string) (string, error)
	TranslateWithContext(ctx context.Context, text, source, target, prevText, prevTranslation string) (string, error)
}

// CaptionSink receives translated captions for asynchronous delivery to a
// participant. Delivery is fire-and-forget from the orchestrator's side.
type CaptionSink interface {
	Deliver(sessionID, userID uuid.UUID, caption *entities.TranslatedCaption)
}

// Request carries one finalized utterance through the fan-out
type Request struct {
	SessionID uuid.UUID
	Utterance *entities.Utterance
	Speaker   entities.Speaker
	Analysis  language.Analysis

	// OrderingToken is the source-relative timestamp; monotonic per speaker.
	OrderingToken int64
}

// Orchestrator fans a finalized utterance out to every participant whose
// display language differs from the speaker's. Participants are grouped by
// target language so each distinct language costs one translation call
// regardless of group size; a failing language never blocks its siblings.
type Orchestrator struct {
	roster   repositories.Roster
	prefs    repositories.PreferenceRepository
	executor Executor
	tracker  *ContextTracker
	sink     CaptionSink
	chunker  *language.Chunker

	rosterCache *cache.MemoryStore
	cacheTTL    time.Duration

	logger *zap.Logger
}

// NewOrchestrator creates a translation orchestrator
func NewOrchestrator(
	roster repositories.Roster,
	prefs repositories.PreferenceRepository,
	executor Executor,
	tracker *ContextTracker,
	sink CaptionSink,
	chunker *language.Chunker,
	rosterCache *cache.MemoryStore,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		roster:      roster,
		prefs:       prefs,
		executor:    executor,
		tracker:     tracker,
		sink:        sink,
		chunker:     chunker,
		rosterCache: rosterCache,
		cacheTTL:    cacheTTL,
		logger:      logger,
	}
}

// ProcessTranslation runs the fan-out for one finalized utterance. It is
// strictly additive and best-effort: no error here reaches the ingestion
// path or gates display of the original transcript.
func (o *Orchestrator) ProcessTranslation(ctx context.Context, req Request) {
	u := req.Utterance
	if u == nil || u.IsPartial {
		return
	}

	participants, err := o.participants(ctx, req.SessionID)
	if err != nil {
		o.warn("failed to list session participants", req, err)
		return
	}

	// The speaker never receives a translation of their own utterance.
	// Matching on the roster identity as well covers speakers whose user id
	// could not be resolved at ingestion time.
	listeners := make([]*entities.SessionParticipant, 0, len(participants))
	for _, p := range participants {
		if o.isSpeaker(p, req.Speaker) {
			continue
		}
		listeners = append(listeners, p)
	}
	if len(listeners) == 0 {
		o.recordContext(req, u.Text, "")
		return
	}

	userIDs := make([]uuid.UUID, 0, len(listeners))
	for _, p := range listeners {
		userIDs = append(userIDs, p.UserID)
	}

	// One batched preference fetch for the whole roster, never per user.
	prefs, err := o.prefs.GetBatch(ctx, req.SessionID, userIDs)
	if err != nil {
		o.warn("failed to batch-fetch language preferences", req, err)
		return
	}

	groups := make(map[string][]uuid.UUID)
	for _, pref := range prefs {
		if pref.WantsTranslationFrom(u.LanguageCode) {
			groups[pref.TargetLanguage] = append(groups[pref.TargetLanguage], pref.UserID)
		}
	}
	if len(groups) == 0 {
		o.recordContext(req, u.Text, "")
		return
	}

	targets := make([]string, 0, len(groups))
	for target := range groups {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	// Continuity is decided once per utterance and applies to every target.
	// An unresolved speaker identity carries no rolling context.
	var prior *entities.SpeakerContext
	if req.Speaker.UserID != uuid.Nil {
		prior = o.tracker.GetContext(req.SessionID, req.Speaker.UserID)
	}
	contextAware := prior != nil && prior.LastOriginalText != "" && o.tracker.IsContinuousSpeech(prior)

	// The speaker's context snapshot is anchored to the first target
	// language's translation even when several are requested.
	var (
		mu               sync.Mutex
		firstTranslation string
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, target := range targets {
		target := target
		users := groups[target]
		g.Go(func() error {
			var (
				translated string
				method     string
				err        error
			)
			if contextAware {
				method = entities.TranslationMethodContextAware
				translated, err = o.executor.TranslateWithContext(gctx, u.Text, u.LanguageCode, target, prior.LastOriginalText, prior.LastTranslatedText)
			} else {
				method = entities.TranslationMethodDirect
				translated, err = o.executor.TranslateWithCache(gctx, u.Text, u.LanguageCode, target)
			}
			if err != nil {
				// Isolated per language group; siblings keep going.
				o.warnTarget("translation failed for target language", req, target, err)
				return nil
			}

			if target == targets[0] {
				mu.Lock()
				firstTranslation = translated
				mu.Unlock()
			}

			o.deliver(req, target, translated, method, users)
			return nil
		})
	}
	_ = g.Wait()

	o.recordContext(req, u.Text, firstTranslation)
}

// isSpeaker reports whether a roster participant is the utterance's speaker,
// by resolved user id or by raw roster identity
func (o *Orchestrator) isSpeaker(p *entities.SessionParticipant, speaker entities.Speaker) bool {
	if speaker.UserID != uuid.Nil && p.UserID == speaker.UserID {
		return true
	}
	return speaker.AttendeeID != "" && p.Identity == speaker.AttendeeID
}

// recordContext updates the speaker's rolling context. Skipped when the
// speaker's user id is unresolved: a nil key would merge context across every
// unresolved speaker in the session.
func (o *Orchestrator) recordContext(req Request, originalText, translatedText string) {
	if req.Speaker.UserID == uuid.Nil {
		return
	}
	o.tracker.UpdateContext(req.SessionID, req.Speaker.UserID, originalText, translatedText)
}

// deliver chunks a translated span into natural units and hands one caption
// per (chunk, user) to the sink
func (o *Orchestrator) deliver(req Request, target, translated, method string, users []uuid.UUID) {
	u := req.Utterance
	chunks := o.chunker.Chunk(translated, target)
	for _, chunk := range chunks {
		caption := &entities.TranslatedCaption{
			SessionID:          req.SessionID,
			ResultID:           u.ResultID,
			SpeakerUserID:      req.Speaker.UserID,
			SpeakerDisplayName: req.Speaker.DisplayName,
			SourceLanguage:     u.LanguageCode,
			TargetLanguage:     target,
			OriginalText:       u.Text,
			TranslatedText:     chunk.Text,
			Method:             method,
			StartTimeMs:        u.StartTimeMs,
			EndTimeMs:          u.EndTimeMs,
			ChunkIndex:         chunk.Index,
			ChunkTotal:         len(chunks),
		}
		for _, userID := range users {
			o.sink.Deliver(req.SessionID, userID, caption)
		}
	}
}

// participants fetches the session roster with a short-TTL cache so fan-out
// stays off the roster source's hot path
func (o *Orchestrator) participants(ctx context.Context, sessionID uuid.UUID) ([]*entities.SessionParticipant, error) {
	key := "roster:" + sessionID.String()
	if o.rosterCache != nil {
		if raw, ok := o.rosterCache.Get(key); ok {
			var cached []*entities.SessionParticipant
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				return cached, nil
			}
		}
	}

	participants, err := o.roster.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if o.rosterCache != nil {
		if raw, err := json.Marshal(participants); err == nil {
			o.rosterCache.Set(key, string(raw), o.cacheTTL)
		}
	}
	return participants, nil
}

func (o *Orchestrator) warn(msg string, req Request, err error) {
	if o.logger == nil {
		return
	}
	o.logger.Warn(msg,
		zap.String("session_id", req.SessionID.String()),
		zap.String("result_id", req.Utterance.ResultID),
		zap.Error(err),
	)
}

func (o *Orchestrator) warnTarget(msg string, req Request, target string, err error) {
	if o.logger == nil {
		return
	}
	o.logger.Warn(msg,
		zap.String("session_id", req.SessionID.String()),
		zap.String("result_id", req.Utterance.ResultID),
		zap.String("target_language", target),
		zap.Error(err),
	)
}
