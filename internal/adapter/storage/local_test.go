package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/vaultkeep/internal/domain"
)

func artifactAt(id, typ string, at time.Time) domain.Artifact {
	return domain.Artifact{
		ID:         id,
		Timestamp:  at.UTC().Format(domain.TimestampLayout),
		Type:       typ,
		Compressed: true,
		Version:    "1.0.0",
	}
}

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage", t, func() {
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		ctx := context.Background()

		Convey("NewLocal", func() {
			Convey("When creating with valid path", func() {
				storage, err := NewLocal(tempDir)

				Convey("It should create successfully", func() {
					So(err, ShouldBeNil)
					So(storage, ShouldNotBeNil)
					So(storage.basePath, ShouldEqual, tempDir)
				})
			})

			Convey("When creating with non-existent path", func() {
				newPath := filepath.Join(tempDir, "new", "nested", "dir")
				storage, err := NewLocal(newPath)

				Convey("It should create directory and succeed", func() {
					So(err, ShouldBeNil)
					So(storage, ShouldNotBeNil)

					info, err := os.Stat(newPath)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})

			Convey("When called twice on the same path", func() {
				_, err := NewLocal(tempDir)
				So(err, ShouldBeNil)
				_, err = NewLocal(tempDir)
				So(err, ShouldBeNil)
			})
		})

		Convey("Write and Open", func() {
			storage, _ := NewLocal(tempDir)
			art := artifactAt("abc", domain.TypeManual, time.Now())

			path, err := storage.Write(ctx, "backup_x_abc", strings.NewReader("payload"), art)

			Convey("It should persist payload and sidecar with no temp files left", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, filepath.Join(tempDir, "backup_x_abc"+PayloadExt))

				_, err = os.Stat(filepath.Join(tempDir, "backup_x_abc"+SidecarExt))
				So(err, ShouldBeNil)

				entries, _ := os.ReadDir(tempDir)
				So(len(entries), ShouldEqual, 2)

				rc, err := storage.Open(ctx, "backup_x_abc")
				So(err, ShouldBeNil)
				defer rc.Close()
				content, _ := io.ReadAll(rc)
				So(string(content), ShouldEqual, "payload")
			})

			Convey("Open on a missing payload should be not found", func() {
				_, err := storage.Open(ctx, "backup_missing")
				So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("List method", func() {
			storage, _ := NewLocal(tempDir)
			now := time.Now()
			storage.Write(ctx, "a", strings.NewReader("1"), artifactAt("a", domain.TypeManual, now.Add(-3*time.Hour)))
			storage.Write(ctx, "b", strings.NewReader("2"), artifactAt("b", domain.TypeScheduled, now.Add(-2*time.Hour)))
			storage.Write(ctx, "c", strings.NewReader("3"), artifactAt("c", domain.TypeManual, now.Add(-1*time.Hour)))
			os.Mkdir(filepath.Join(tempDir, "subdir"), 0755)
			os.WriteFile(filepath.Join(tempDir, "notes.txt"), []byte("ignored"), 0644)

			Convey("When listing without a filter", func() {
				page, err := storage.List(ctx, domain.Filter{})

				Convey("It should return all sidecars newest first", func() {
					So(err, ShouldBeNil)
					So(page.Total, ShouldEqual, 3)
					So(page.Items[0].Artifact.ID, ShouldEqual, "c")
					So(page.Items[1].Artifact.ID, ShouldEqual, "b")
					So(page.Items[2].Artifact.ID, ShouldEqual, "a")
				})
			})

			Convey("When filtering by type", func() {
				page, err := storage.List(ctx, domain.Filter{Type: domain.TypeManual})
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 2)
			})

			Convey("When filtering by creation window", func() {
				page, err := storage.List(ctx, domain.Filter{
					CreatedAfter:  now.Add(-150 * time.Minute),
					CreatedBefore: now.Add(-30 * time.Minute),
				})
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 2)
				So(page.Items[0].Artifact.ID, ShouldEqual, "c")
			})

			Convey("When paginating", func() {
				page, err := storage.List(ctx, domain.Filter{Offset: 1, Limit: 1})
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 3)
				So(len(page.Items), ShouldEqual, 1)
				So(page.Items[0].Artifact.ID, ShouldEqual, "b")

				page, err = storage.List(ctx, domain.Filter{Offset: 10})
				So(err, ShouldBeNil)
				So(len(page.Items), ShouldEqual, 0)
			})

			Convey("When directory is empty", func() {
				emptyDir := filepath.Join(tempDir, "empty")
				empty, _ := NewLocal(emptyDir)

				page, err := empty.List(ctx, domain.Filter{})
				So(err, ShouldBeNil)
				So(page.Total, ShouldEqual, 0)
			})
		})

		Convey("Find method", func() {
			storage, _ := NewLocal(tempDir)
			now := time.Now()
			storage.Write(ctx, "backup_t_12", strings.NewReader("1"), artifactAt("12", domain.TypeManual, now))
			storage.Write(ctx, "backup_t_123", strings.NewReader("2"), artifactAt("123", domain.TypeManual, now))

			Convey("It should match ids exactly, never by substring", func() {
				name, art, err := storage.Find(ctx, "12")
				So(err, ShouldBeNil)
				So(name, ShouldEqual, "backup_t_12")
				So(art.ID, ShouldEqual, "12")

				name, _, err = storage.Find(ctx, "123")
				So(err, ShouldBeNil)
				So(name, ShouldEqual, "backup_t_123")

				_, _, err = storage.Find(ctx, "1")
				So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
			})

			Convey("It should refuse ambiguous ids", func() {
				storage.Write(ctx, "backup_u_12", strings.NewReader("3"), artifactAt("12", domain.TypeManual, now))
				_, _, err := storage.Find(ctx, "12")
				So(errors.Is(err, domain.ErrNotFound), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "ambiguous")
			})
		})

		Convey("Delete method", func() {
			storage, _ := NewLocal(tempDir)
			storage.Write(ctx, "delete_me", strings.NewReader("x"), artifactAt("d", domain.TypeManual, time.Now()))

			Convey("When deleting existing artifact", func() {
				err := storage.Delete(ctx, "delete_me")

				Convey("It should remove payload and sidecar", func() {
					So(err, ShouldBeNil)
					_, err := os.Stat(filepath.Join(tempDir, "delete_me"+PayloadExt))
					So(os.IsNotExist(err), ShouldBeTrue)
					_, err = os.Stat(filepath.Join(tempDir, "delete_me"+SidecarExt))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
			})

			Convey("When deleting non-existent artifact", func() {
				err := storage.Delete(ctx, "nonexistent")

				Convey("It should succeed", func() {
					So(err, ShouldBeNil)
				})
			})
		})

		Convey("Orphans method", func() {
			storage, _ := NewLocal(tempDir)
			storage.Write(ctx, "complete", strings.NewReader("x"), artifactAt("c", domain.TypeManual, time.Now()))
			os.WriteFile(filepath.Join(tempDir, "orphan"+PayloadExt), []byte("x"), 0644)

			orphans, err := storage.Orphans(ctx)

			Convey("It should report payloads without sidecars only", func() {
				So(err, ShouldBeNil)
				So(orphans, ShouldHaveLength, 1)
				So(orphans[0].Name, ShouldEqual, "orphan")
				So(time.Since(orphans[0].ModTime), ShouldBeLessThan, time.Minute)

				page, _ := storage.List(ctx, domain.Filter{})
				So(page.Total, ShouldEqual, 1)
			})
		})

		Convey("GetPath method", func() {
			storage, _ := NewLocal(tempDir)
			So(storage.GetPath("test.txt"), ShouldEqual, filepath.Join(tempDir, "test.txt"))
		})
	})
}
