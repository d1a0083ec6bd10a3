package jobs

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/avolkov/volkovoice/internal/eventlog"
	"github.com/avolkov/volkovoice/internal/store"
	"github.com/avolkov/volkovoice/internal/voiceid"
)

// CloneTrainingStore is the persistence surface the job needs.
type CloneTrainingStore interface {
	ListPendingVoiceClones(ctx context.Context) ([]store.VoiceClone, error)
	UpdateVoiceCloneStatus(ctx context.Context, id int64, status string) error
	CompleteVoiceClone(ctx context.Context, id int64, identity []byte) error
}

// CloneTrainingJob turns pending voice clones into usable ones. It runs on a
// configurable interval (default: 30 seconds), picks up clones in the pending
// state, computes a voice identity from the stored sample, and marks each
// clone completed or failed.
type CloneTrainingJob struct {
	store    CloneTrainingStore
	encoder  voiceid.Encoder
	eventLog *eventlog.Logger
	logger   *log.Logger
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewCloneTrainingJob creates a new clone training job.
func NewCloneTrainingJob(s CloneTrainingStore, encoder voiceid.Encoder, eventLog *eventlog.Logger, logger *log.Logger, interval time.Duration) *CloneTrainingJob {
	if interval == 0 {
		interval = 30 * time.Second
	}
	return &CloneTrainingJob{
		store:    s,
		encoder:  encoder,
		eventLog: eventLog,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background job.
func (j *CloneTrainingJob) Start() {
	j.wg.Add(1)
	go j.run()
	j.logger.Printf("CloneTrainingJob: started (interval=%v)", j.interval)
}

// Stop gracefully stops the background job.
func (j *CloneTrainingJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
	j.logger.Println("CloneTrainingJob: stopped")
}

func (j *CloneTrainingJob) run() {
	defer j.wg.Done()

	// Run immediately on start
	j.processPending()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.processPending()
		case <-j.stopCh:
			return
		}
	}
}

func (j *CloneTrainingJob) processPending() {
	ctx := context.Background()

	clones, err := j.store.ListPendingVoiceClones(ctx)
	if err != nil {
		j.logger.Printf("CloneTrainingJob: failed to list pending clones: %v", err)
		return
	}

	for _, clone := range clones {
		j.trainClone(ctx, clone)
	}

	if len(clones) > 0 {
		j.logger.Printf("CloneTrainingJob: processed %d pending clones", len(clones))
	}
}

func (j *CloneTrainingJob) trainClone(ctx context.Context, clone store.VoiceClone) {
	if err := j.store.UpdateVoiceCloneStatus(ctx, clone.ID, store.CloneStatusTraining); err != nil {
		j.logger.Printf("CloneTrainingJob: failed to mark clone %d training: %v", clone.ID, err)
		return
	}

	sample, err := os.ReadFile(clone.SamplePath)
	if err != nil {
		j.failClone(ctx, clone, err)
		return
	}

	identity, err := j.encoder.ComputeIdentity(ctx, sample)
	if err != nil {
		j.failClone(ctx, clone, err)
		return
	}

	if err := j.store.CompleteVoiceClone(ctx, clone.ID, identity); err != nil {
		j.logger.Printf("CloneTrainingJob: failed to complete clone %d: %v", clone.ID, err)
		return
	}

	j.eventLog.LogAsync(clone.UserID, eventlog.EventCloneTrained, map[string]any{"clone_id": clone.ID})
	j.logger.Printf("CloneTrainingJob: trained clone %d (%s) for user %s", clone.ID, clone.Name, clone.UserID)
}

func (j *CloneTrainingJob) failClone(ctx context.Context, clone store.VoiceClone, cause error) {
	j.logger.Printf("CloneTrainingJob: clone %d failed: %v", clone.ID, cause)
	if err := j.store.UpdateVoiceCloneStatus(ctx, clone.ID, store.CloneStatusFailed); err != nil {
		j.logger.Printf("CloneTrainingJob: failed to mark clone %d failed: %v", clone.ID, err)
	}
	j.eventLog.LogAsync(clone.UserID, eventlog.EventCloneTrainFailed, map[string]any{
		"clone_id": clone.ID,
		"error":    cause.Error(),
	})
}
