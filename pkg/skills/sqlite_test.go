package skills_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conduitlabs/relay/pkg/skills"
)

var _ = Describe("SQLiteDirectory", func() {
	var (
		dir *skills.SQLiteDirectory
		ctx context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		dir, err = skills.NewSQLiteDirectory(":memory:")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if dir != nil {
			dir.Close()
		}
	})

	Describe("NewSQLiteDirectory", func() {
		It("creates a directory with in-memory database", func() {
			Expect(dir).NotTo(BeNil())
		})

		It("creates a directory with file database", func() {
			tmpDir := GinkgoT().TempDir()
			dbPath := filepath.Join(tmpDir, "skills.db")

			d, err := skills.NewSQLiteDirectory(dbPath)
			Expect(err).NotTo(HaveOccurred())
			defer d.Close()

			_, err = os.Stat(dbPath)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Lookup", func() {
		It("returns an empty record for an empty table", func() {
			rec, err := dir.Lookup(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Empty()).To(BeTrue())
		})

		It("returns seeded rows keyed by user key", func() {
			err := dir.Seed(ctx, "u1", "Ada Lovelace",
				[]string{"mentoring", "writing"},
				skills.HardSkills{Programming: []string{"go", "python"}, Tools: []string{"docker"}})
			Expect(err).NotTo(HaveOccurred())

			err = dir.Seed(ctx, "u2", "Grace Hopper",
				nil,
				skills.HardSkills{Tools: []string{"kubernetes"}})
			Expect(err).NotTo(HaveOccurred())

			rec, err := dir.Lookup(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Empty()).To(BeFalse())

			Expect(rec.Identifiers).To(HaveLen(2))
			Expect(rec.Identifiers["u1"]).To(Equal("Ada Lovelace"))
			Expect(rec.Soft["u1"]).To(Equal([]string{"mentoring", "writing"}))
			Expect(rec.Hard["u1"].Programming).To(Equal([]string{"go", "python"}))
			Expect(rec.Hard["u1"].Tools).To(Equal([]string{"docker"}))

			Expect(rec.Identifiers["u2"]).To(Equal("Grace Hopper"))
			Expect(rec.Soft["u2"]).To(BeEmpty())
			Expect(rec.Hard["u2"].Tools).To(Equal([]string{"kubernetes"}))
		})

		It("replaces a row seeded twice with the same key", func() {
			Expect(dir.Seed(ctx, "u1", "Old Name", nil, skills.HardSkills{})).To(Succeed())
			Expect(dir.Seed(ctx, "u1", "New Name", nil, skills.HardSkills{})).To(Succeed())

			rec, err := dir.Lookup(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Identifiers).To(HaveLen(1))
			Expect(rec.Identifiers["u1"]).To(Equal("New Name"))
		})
	})
})
