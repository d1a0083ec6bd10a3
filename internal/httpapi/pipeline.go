package httpapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avolkov/volkovoice/internal/audio"
	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/store"
	"github.com/avolkov/volkovoice/internal/tts"
)

const (
	// Buffer trigger defaults, in bytes of 16kHz 16-bit mono PCM.
	defaultLiveEnrollThreshold = 5 * audio.BytesPerSecond // 160000, 5s
	defaultDiarizeThreshold    = 180000                   // ~5.6s
	defaultFallbackThreshold   = 3 * audio.BytesPerSecond // 96000, 3s

	defaultAudioQueueSize = 64

	// Diarized segments shorter than this are noise, not speech.
	minSegmentSeconds = 0.5

	// Texts below this word count carry no topical signal worth extracting.
	keywordMinWords = 5

	// Speaker label for the no-diarizer fallback branch.
	singleSpeakerLabel = "SPEAKER_00"
)

// Thresholds are the byte counts of buffered PCM at which the session
// triggers live enrollment, the diarized pipeline, and the single-speaker
// fallback pipeline.
type Thresholds struct {
	LiveEnroll int
	Diarize    int
	Fallback   int
}

func (t Thresholds) withDefaults() Thresholds {
	if t.LiveEnroll <= 0 {
		t.LiveEnroll = defaultLiveEnrollThreshold
	}
	if t.Diarize <= 0 {
		t.Diarize = defaultDiarizeThreshold
	}
	if t.Fallback <= 0 {
		t.Fallback = defaultFallbackThreshold
	}
	return t
}

// stageFailure carries which pipeline stage failed and what to tell the
// client. The session survives a stage failure; only the in-flight window is
// lost.
type stageFailure struct {
	stage     string
	clientMsg string
	err       error
}

func (f *stageFailure) Error() string { return fmt.Sprintf("%s: %v", f.stage, f.err) }
func (f *stageFailure) Unwrap() error { return f.err }

// processLoop is the pipeline driver. It drains the audio queue until the
// receiver closes it, accumulating PCM and firing the pipeline whenever a
// threshold is crossed.
func (s *translateSession) processLoop() {
	for chunk := range s.audioCh {
		s.processChunk(chunk)
	}
}

func (s *translateSession) processChunk(chunk []byte) {
	s.buf = append(s.buf, chunk...)
	s.metrics.AudioBytesIn.Add(float64(len(chunk)))

	// Live enrollment is evaluated first and reads the buffer without
	// draining it, so a drain trigger may fire on the same chunk over
	// overlapping audio. Enrollment is eager: it must not wait for a
	// pipeline pass to release the buffer.
	if s.enrollState == enrollNotAttempted &&
		s.cfg.snapshot().voiceCloneID == 0 &&
		len(s.buf) > s.thresholds.LiveEnroll {
		s.attemptLiveEnrollment()
	}

	// With a diarizer present the session waits for the larger diarize window;
	// the fallback trigger exists only for sessions without one. Draining at
	// the lower threshold would make the diarized branch unreachable.
	switch {
	case s.caps.Diarizer != nil && len(s.buf) > s.thresholds.Diarize:
		window := s.buf
		s.buf = nil
		s.runDiarized(window)
	case s.caps.Diarizer == nil && len(s.buf) > s.thresholds.Fallback:
		window := s.buf
		s.buf = nil
		s.runSingleSpeaker(window)
	}
}

// attemptLiveEnrollment bootstraps a voice identity from the first seconds of
// session audio. One-shot: whatever the outcome, it is never retried within
// the session.
func (s *translateSession) attemptLiveEnrollment() {
	if s.caps.VoiceID == nil {
		s.enrollState = enrollFailed
		return
	}
	s.enrollState = enrollAttempting
	s.eventLog.LogAsync(s.id, eventlog.EventEnrollmentStarted, map[string]any{"bytes": len(s.buf)})
	s.sendStatus("Analyzing your voice for live cloning...")

	identity, err := s.caps.VoiceID.ComputeIdentity(s.ctx, s.buf)
	if err != nil {
		s.enrollState = enrollFailed
		s.metrics.EnrollmentResults.WithLabelValues("failed").Inc()
		s.eventLog.LogAsync(s.id, eventlog.EventEnrollmentFailed, map[string]any{"error": err.Error()})
		s.logger.Printf("translate_ws: live enrollment failed for %s: %v", s.identity, err)
		s.sendError("Live voice cloning failed. Using default voice.")
		return
	}

	s.liveIdentity = identity
	s.enrollState = enrollSucceeded
	s.metrics.EnrollmentResults.WithLabelValues("succeeded").Inc()
	s.eventLog.LogAsync(s.id, eventlog.EventEnrollmentSuccess, nil)
	s.logger.Printf("translate_ws: live enrollment succeeded for %s", s.identity)
	s.sendEvent(eventLiveClone, "Live clone successful! Translations will now use your voice.")
}

// runDiarized splits the window by speaker turns and pipelines each segment
// in order. A diarization failure drops the whole window; a segment failure
// drops the remainder of the window.
func (s *translateSession) runDiarized(window []byte) {
	s.metrics.PipelineTriggers.WithLabelValues("diarized").Inc()
	s.eventLog.LogAsync(s.id, eventlog.EventDiarizationTrigger, map[string]any{"bytes": len(window)})
	s.sendStatus("Identifying speakers...")

	segments, err := s.caps.Diarizer.Diarize(s.ctx, window)
	if err != nil {
		s.reportStageFailure(&stageFailure{
			stage:     "diarization",
			clientMsg: "Speaker identification failed.",
			err:       err,
		})
		return
	}

	for _, seg := range segments {
		pcm := audio.Slice(window, seg.Start, seg.End)
		if audio.Duration(len(pcm)) < minSegmentSeconds {
			continue
		}
		s.sendStatus(fmt.Sprintf("Transcribing %s...", seg.Speaker))
		if f := s.processSegment(pcm, seg.Speaker); f != nil {
			s.reportStageFailure(f)
			return
		}
	}
}

// runSingleSpeaker pipelines the whole window as one segment under a fixed
// speaker label.
func (s *translateSession) runSingleSpeaker(window []byte) {
	s.metrics.PipelineTriggers.WithLabelValues("single").Inc()
	s.eventLog.LogAsync(s.id, eventlog.EventFallbackTrigger, map[string]any{"bytes": len(window)})
	s.sendStatus("Transcribing...")

	if f := s.processSegment(window, singleSpeakerLabel); f != nil {
		s.reportStageFailure(f)
	}
}

// processSegment runs one PCM segment through the full
// transcribe/translate/synthesize pipeline and streams the synthesized audio
// back as binary frames. The config is snapshotted once so a mid-segment
// update cannot mix languages within the segment.
func (s *translateSession) processSegment(pcm []byte, speaker string) *stageFailure {
	snap := s.cfg.snapshot()

	text, err := s.caps.STT.Transcribe(s.ctx, pcm, snap.sourceLang)
	if err != nil {
		return &stageFailure{stage: "transcription", clientMsg: "An error occurred during translation.", err: err}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.sendEvent(eventTranscript, segmentText{Text: text, Lang: snap.sourceLang, Speaker: speaker})

	s.emitKeywords(text)

	tr, ok := s.caps.Translators.Lookup(snap.sourceLang, snap.targetLang)
	if !ok {
		return &stageFailure{
			stage:     "translation",
			clientMsg: fmt.Sprintf("Translation %s to %s is not supported.", snap.sourceLang, snap.targetLang),
			err:       fmt.Errorf("no translator for %s->%s", snap.sourceLang, snap.targetLang),
		}
	}
	translated, err := tr.Translate(s.ctx, text, snap.formality)
	if err != nil {
		return &stageFailure{stage: "translation", clientMsg: "An error occurred during translation.", err: err}
	}
	s.sendEvent(eventTranslation, segmentText{Text: translated, Lang: snap.targetLang, Speaker: speaker})

	chunks, err := s.caps.TTS.SynthesizeStream(s.ctx, tts.Request{
		Text:     translated,
		Language: snap.targetLang,
		Identity: s.resolveVoiceIdentity(snap),
		Emotion:  tts.EmotionPreset(snap.emotion),
	})
	if err != nil {
		return &stageFailure{stage: "synthesis", clientMsg: "Speech synthesis failed.", err: err}
	}
	for chunk := range chunks {
		if err := s.conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			for range chunks {
				// drain so the producer goroutine unwinds
			}
			return &stageFailure{stage: "synthesis", clientMsg: "Speech synthesis failed.", err: err}
		}
		s.metrics.SynthesisChunks.Inc()
	}

	s.recordHistory(snap, text, translated, speaker)
	return nil
}

// emitKeywords is best-effort: the capability is optional, very short texts
// are skipped, and extraction failures only cost the keywords event.
func (s *translateSession) emitKeywords(text string) {
	if s.caps.Keywords == nil || len(strings.Fields(text)) < keywordMinWords {
		return
	}
	kws, err := s.caps.Keywords.Extract(s.ctx, text)
	if err != nil {
		s.logger.Printf("translate_ws: keyword extraction failed for %s: %v", s.identity, err)
		return
	}
	if len(kws) > 0 {
		s.sendEvent(eventKeywords, kws)
	}
}

// resolveVoiceIdentity picks exactly one conditioning source per synthesis
// call: an explicitly selected completed clone owned by this identity, else
// the live-bootstrapped identity, else nil for the default reference voice.
// A clone that is missing, unowned, or not completed falls through the chain
// instead of failing the segment.
func (s *translateSession) resolveVoiceIdentity(snap configSnapshot) []byte {
	if snap.voiceCloneID != 0 && s.clones != nil {
		clone, err := s.clones.GetVoiceClone(s.ctx, snap.voiceCloneID, s.identity)
		if err != nil {
			s.logger.Printf("translate_ws: clone %d lookup failed for %s: %v", snap.voiceCloneID, s.identity, err)
		} else if clone != nil && clone.Status == store.CloneStatusCompleted && len(clone.Identity) > 0 {
			return clone.Identity
		}
	}
	if s.enrollState == enrollSucceeded {
		return s.liveIdentity
	}
	return nil
}

// recordHistory persists the processed turn without blocking the pipeline.
func (s *translateSession) recordHistory(snap configSnapshot, source, translated, speaker string) {
	if s.clones == nil {
		return
	}
	h := store.TranslationHistory{
		ID:             uuid.NewString(),
		UserID:         s.identity,
		SourceLang:     snap.sourceLang,
		TargetLang:     snap.targetLang,
		SourceText:     source,
		TranslatedText: translated,
		Speaker:        speaker,
		CreatedAt:      time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.clones.InsertTranslationHistory(ctx, h); err != nil {
			s.logger.Printf("translate_ws: history insert failed for %s: %v", s.identity, err)
		}
	}()
}

func (s *translateSession) reportStageFailure(f *stageFailure) {
	s.metrics.StageErrors.WithLabelValues(f.stage).Inc()
	s.eventLog.LogAsync(s.id, eventlog.EventStageError, map[string]any{"stage": f.stage, "error": f.err.Error()})
	s.logger.Printf("translate_ws: %s stage failed for %s: %v", f.stage, s.identity, f.err)
	s.sendError(f.clientMsg)
}
