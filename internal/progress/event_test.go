package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func validEvent(stage Stage) Event {
	evt := Event{
		RunID: UUIDToBytes(uuid.New()),
		TS:    time.Now().UTC(),
		Stage: stage,
	}
	switch stage {
	case StageRunStart, StageRunDone:
	default:
		evt.Environment = "staging"
	}
	if stage == StageVisitDone {
		evt.StatusClass = Status2xx
	}
	return evt
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	for _, stage := range []Stage{
		StageRunStart, StageRunDone, StageCrawlStart, StageCrawlDone,
		StageCrawlError, StageVisitStart, StageVisitDone, StageLinkSkipped,
	} {
		require.NoError(t, validEvent(stage).Validate(), "stage %s", stage)
	}

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr string
	}{
		{
			name:    "missing run id",
			mutate:  func(e *Event) { e.RunID = [16]byte{} },
			wantErr: "run id is required",
		},
		{
			name:    "missing timestamp",
			mutate:  func(e *Event) { e.TS = time.Time{} },
			wantErr: "timestamp is required",
		},
		{
			name:    "unknown stage",
			mutate:  func(e *Event) { e.Stage = "WAT" },
			wantErr: "unknown stage",
		},
		{
			name:    "negative duration",
			mutate:  func(e *Event) { e.Dur = -time.Second },
			wantErr: "duration must be >= 0",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			evt := validEvent(StageVisitDone)
			tc.mutate(&evt)
			require.ErrorContains(t, evt.Validate(), tc.wantErr)
		})
	}

	crawlEvt := validEvent(StageCrawlDone)
	crawlEvt.Environment = ""
	require.ErrorContains(t, crawlEvt.Validate(), "require an environment")

	visitEvt := validEvent(StageVisitDone)
	visitEvt.StatusClass = ""
	require.ErrorContains(t, visitEvt.Validate(), "status class")
}

func TestRunUUIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	evt := Event{RunID: UUIDToBytes(id)}
	require.Equal(t, id, evt.RunUUID())
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want StatusClass
	}{
		{200, Status2xx},
		{204, Status2xx},
		{301, Status3xx},
		{404, Status4xx},
		{500, Status5xx},
		{599, Status5xx},
		{0, StatusOther},
		{700, StatusOther},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, ClassifyStatus(tc.code), "code %d", tc.code)
	}
}
