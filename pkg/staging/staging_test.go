package staging_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/lanternhq/lantern/pkg/fault"
	"github.com/lanternhq/lantern/pkg/staging"
)

var _ = Describe("Manager", func() {
	var (
		manager *staging.Manager
		dir     string
	)

	newManager := func(accepted map[string]bool, maxBytes int64) *staging.Manager {
		m, err := staging.NewManager(staging.Config{
			Dir:          dir,
			Accepted:     accepted,
			MaxSizeBytes: maxBytes,
		}, zap.NewNop())
		Expect(err).NotTo(HaveOccurred())
		return m
	}

	stagedCount := func() int {
		entries, err := os.ReadDir(dir)
		Expect(err).NotTo(HaveOccurred())
		return len(entries)
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		manager = newManager(staging.ImageMIMETypes, 1024)
	})

	Describe("Stage", func() {
		Context("with accepted MIME types", func() {
			It("stages every accepted image type", func() {
				for mimeType := range staging.ImageMIMETypes {
					f, err := manager.Stage(strings.NewReader("payload"), mimeType)
					Expect(err).NotTo(HaveOccurred())
					Expect(f.MIMEType).To(Equal(mimeType))
					Expect(f.Path).To(BeAnExistingFile())
					manager.Release(f)
				}
			})

			It("stages every accepted audio type", func() {
				audio := newManager(staging.AudioMIMETypes, 1024)
				for mimeType := range staging.AudioMIMETypes {
					f, err := audio.Stage(strings.NewReader("payload"), mimeType)
					Expect(err).NotTo(HaveOccurred())
					Expect(f.MIMEType).To(Equal(mimeType))
					Expect(f.Path).To(BeAnExistingFile())
					audio.Release(f)
				}
			})

			It("records the upload size", func() {
				f, err := manager.Stage(strings.NewReader("four"), "image/png")
				Expect(err).NotTo(HaveOccurred())
				Expect(f.SizeBytes).To(Equal(int64(4)))
			})

			It("normalizes declared types with parameters", func() {
				f, err := manager.Stage(strings.NewReader("x"), "image/PNG; charset=binary")
				Expect(err).NotTo(HaveOccurred())
				Expect(f.MIMEType).To(Equal("image/png"))
			})

			It("assigns collision-free names to identical uploads", func() {
				f1, err := manager.Stage(strings.NewReader("same"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				f2, err := manager.Stage(strings.NewReader("same"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())

				Expect(f1.Path).NotTo(Equal(f2.Path))
				Expect(stagedCount()).To(Equal(2))
			})
		})

		Context("with rejected MIME types", func() {
			It("rejects types outside the accepted set without writing", func() {
				for _, mimeType := range []string{"audio/mid", "text/html", "application/pdf", "image/gif"} {
					_, err := manager.Stage(strings.NewReader("payload"), mimeType)
					Expect(err).To(HaveOccurred())
					Expect(fault.KindOf(err)).To(Equal(fault.UnsupportedMediaType))
				}
				Expect(stagedCount()).To(BeZero())
			})

			It("rejects audio types when configured for images", func() {
				_, err := manager.Stage(strings.NewReader("payload"), "audio/mp3")
				Expect(fault.KindOf(err)).To(Equal(fault.UnsupportedMediaType))
				Expect(stagedCount()).To(BeZero())
			})
		})

		Context("with oversize uploads", func() {
			It("aborts the write and leaves nothing on disk", func() {
				small := newManager(staging.ImageMIMETypes, 8)
				_, err := small.Stage(strings.NewReader("way more than eight bytes"), "image/jpeg")
				Expect(err).To(HaveOccurred())
				Expect(fault.KindOf(err)).To(Equal(fault.PayloadTooLarge))
				Expect(stagedCount()).To(BeZero())
			})

			It("admits an upload of exactly the cap", func() {
				exact := newManager(staging.ImageMIMETypes, 8)
				f, err := exact.Stage(strings.NewReader("12345678"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
				Expect(f.SizeBytes).To(Equal(int64(8)))
			})
		})
	})

	Describe("Release", func() {
		It("removes the staged file", func() {
			f, err := manager.Stage(strings.NewReader("payload"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			manager.Release(f)
			Expect(f.Path).NotTo(BeAnExistingFile())
		})

		It("is idempotent", func() {
			f, err := manager.Stage(strings.NewReader("payload"), "image/png")
			Expect(err).NotTo(HaveOccurred())

			manager.Release(f)
			manager.Release(f)
			manager.Release(f)
			Expect(stagedCount()).To(BeZero())
		})

		It("tolerates a handle whose file was never created", func() {
			manager.Release(&staging.StagedFile{Path: filepath.Join(dir, "never-existed.png")})
		})

		It("tolerates nil", func() {
			manager.Release(nil)
		})
	})

	Describe("Scope", func() {
		It("releases every file staged through it", func() {
			scope := manager.NewScope()
			for i := 0; i < 3; i++ {
				_, err := scope.Stage(strings.NewReader("payload"), "image/jpeg")
				Expect(err).NotTo(HaveOccurred())
			}
			Expect(scope.Len()).To(Equal(3))
			Expect(stagedCount()).To(Equal(3))

			scope.ReleaseAll()
			Expect(stagedCount()).To(BeZero())
			Expect(scope.Len()).To(BeZero())
		})

		It("cleans up files staged before a failure", func() {
			scope := manager.NewScope()
			_, err := scope.Stage(strings.NewReader("payload"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())

			_, err = scope.Stage(strings.NewReader("payload"), "audio/mid")
			Expect(err).To(HaveOccurred())

			scope.ReleaseAll()
			Expect(stagedCount()).To(BeZero())
		})

		It("is safe to release twice", func() {
			scope := manager.NewScope()
			_, err := scope.Stage(strings.NewReader("payload"), "image/jpeg")
			Expect(err).NotTo(HaveOccurred())

			scope.ReleaseAll()
			scope.ReleaseAll()
			Expect(stagedCount()).To(BeZero())
		})
	})
})
