package usecase

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"

	"github.com/semmidev/vaultkeep/internal/domain"
)

func TestDrill(t *testing.T) {
	Convey("Given a disaster recovery drill", t, func() {
		ctx := context.Background()
		f := newFixture(fixtureOptions{passphrase: "secret", level: 9, retentionDays: 30, maxBackups: 100})
		defer f.Close()

		notifier := &recordingNotifier{}
		rec := &recordingRecorder{}
		drill := NewDrill(f.backup, f.restore, notifier, zap.NewNop().Sugar(), rec)

		Convey("A healthy pipeline should pass every check and leave no artifact", func() {
			result := drill.Execute(ctx, func(context.Context) (any, error) { return samplePayload(), nil })

			So(result.BackupCreation, ShouldBeTrue)
			So(result.BackupRestore, ShouldBeTrue)
			So(result.DataIntegrity, ShouldBeTrue)
			So(result.Error, ShouldBeEmpty)
			So(result.Passed(), ShouldBeTrue)
			So(result.PerformanceMetrics.BackupTime, ShouldBeGreaterThan, 0)
			So(result.PerformanceMetrics.RestoreTime, ShouldBeGreaterThan, 0)

			So(countByType(f, domain.TypeDRTest), ShouldEqual, 0)
			So(rec.drills, ShouldResemble, []bool{true})
			So(notifier.Messages(), ShouldHaveLength, 1)
			So(notifier.Messages()[0], ShouldContainSubstring, "PASSED")
		})

		Convey("A failing provider should be reported, not returned", func() {
			result := drill.Execute(ctx, func(context.Context) (any, error) { return nil, errors.New("db down") })

			So(result.BackupCreation, ShouldBeFalse)
			So(result.Error, ShouldContainSubstring, "db down")
			So(result.Passed(), ShouldBeFalse)
			So(rec.drills, ShouldResemble, []bool{false})
			So(notifier.Messages()[0], ShouldContainSubstring, "FAILED")
		})

		Convey("A panicking provider should be recovered", func() {
			result := drill.Execute(ctx, func(context.Context) (any, error) { panic("boom") })
			So(result.Error, ShouldContainSubstring, "boom")
			So(result.Passed(), ShouldBeFalse)
		})

		Convey("A payload that cannot be serialized should fail at creation", func() {
			result := drill.Execute(ctx, func(context.Context) (any, error) {
				return map[string]any{"ch": make(chan int)}, nil
			})
			So(result.BackupCreation, ShouldBeFalse)
			So(result.Error, ShouldNotBeEmpty)
		})

		Convey("A restore already in progress should fail the drill and still clean up", func() {
			So(f.restore.gate.TryEnter(), ShouldBeTrue)
			defer f.restore.gate.Leave()

			result := drill.Execute(ctx, func(context.Context) (any, error) { return samplePayload(), nil })
			So(result.BackupCreation, ShouldBeTrue)
			So(result.BackupRestore, ShouldBeFalse)
			So(result.Error, ShouldContainSubstring, "restore already in progress")
			So(countByType(f, domain.TypeDRTest), ShouldEqual, 0)
		})
	})
}
