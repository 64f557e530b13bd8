package jobentity_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/veedubyou/stem-splitter-be/src/server/internal/job/entity"
	"time"
)

var _ = Describe("Job entity", func() {
	DescribeTable("SanitizeFileName",
		func(input string, expected string) {
			Expect(jobentity.SanitizeFileName(input)).To(Equal(expected))
		},
		Entry("keeps safe names", "song.mp3", "song.mp3"),
		Entry("joins words with underscores", "My  Great Song.mp3", "My_Great_Song.mp3"),
		Entry("drops directories", "../../etc/passwd", "etc_passwd"),
		Entry("drops windows separators", `C:\music\song.wav`, "C_music_song.wav"),
		Entry("folds accents", "Café Olé.flac", "Cafe_Ole.flac"),
		Entry("keeps a single extension dot", "live.at.wembley.mp3", "live_at_wembley.mp3"),
		Entry("strips leading dots", ".hidden.mp3", "hidden.mp3"),
		Entry("falls back for nothing usable", "???", "upload"),
		Entry("falls back for an extension only", ".mp3", "mp3"),
	)

	It("derives the job from a UUID and the sanitized name", func() {
		now := time.Now()
		job := jobentity.NewJob("My Song.mp3", now)

		Expect(job.ID).To(HaveSuffix("_My_Song.mp3"))
		Expect(job.InputKey).To(Equal(job.ID))
		Expect(job.BaseName + ".mp3").To(Equal(job.ID))
		Expect(job.SubmittedAt).To(Equal(now))
	})

	It("never repeats job IDs for the same file", func() {
		Expect(jobentity.NewJob("a.mp3", time.Now()).ID).NotTo(Equal(jobentity.NewJob("a.mp3", time.Now()).ID))
	})

	Describe("ParseHandle", func() {
		It("turns a job ID into its base name", func() {
			baseName, ok := jobentity.ParseHandle("1234_song.mp3")
			Expect(ok).To(BeTrue())
			Expect(baseName).To(Equal("1234_song"))
		})

		It("accepts a base name as is", func() {
			baseName, ok := jobentity.ParseHandle("1234_song")
			Expect(ok).To(BeTrue())
			Expect(baseName).To(Equal("1234_song"))
		})

		DescribeTable("rejects",
			func(handle string) {
				_, ok := jobentity.ParseHandle(handle)
				Expect(ok).To(BeFalse())
			},
			Entry("empty", ""),
			Entry("traversal", "../secret"),
			Entry("separators", "a/b.mp3"),
			Entry("dot files", ".env"),
			Entry("dotted base names", "a.b.mp3"),
			Entry("spaces", "my song.mp3"),
		)
	})

	Describe("StemSet", func() {
		It("knows the four stem split", func() {
			stems, err := jobentity.NewStemSet(jobentity.FourStems)
			Expect(err).NotTo(HaveOccurred())
			Expect(stems.Names).To(Equal([]string{"vocals", "drums", "bass", "other"}))
		})

		It("knows the two stem split", func() {
			stems, err := jobentity.NewStemSet(jobentity.TwoStems)
			Expect(err).NotTo(HaveOccurred())
			Expect(stems.Names).To(Equal([]string{"vocals", "accompaniment"}))
		})

		It("rejects unknown variants", func() {
			_, err := jobentity.NewStemSet("7stems")
			Expect(err).To(HaveOccurred())
		})

		It("places results under the base name", func() {
			stems := jobentity.StemSet{Names: []string{"vocals"}, Extension: "mp3"}
			Expect(stems.ResultKey("1234_song", "vocals")).To(Equal("1234_song/vocals.mp3"))

			stems.Extension = ""
			Expect(stems.ResultKeys("1234_song")).To(Equal(map[string]string{"vocals": "1234_song/vocals"}))
		})
	})
})
