package migrations_test

import (
	"os"
	"path"

	"github.com/realia-labs/realia/internal/config"
	"github.com/realia-labs/realia/internal/store"
	"github.com/realia-labs/realia/pkg/migrations"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("migrations", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
	)

	BeforeAll(func() {
		cfg, err := config.NewDefault()
		Expect(err).To(BeNil())
		cfg.Database.Type = "sqlite"
		cfg.Database.Name = "file::memory:"

		db, err := store.InitDB(cfg)
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
	})

	AfterAll(func() {
		s.Close()
	})

	Context("store migrations", Ordered, func() {
		tableExists := func(name string) bool {
			var count int
			tx := gormdb.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", name).Scan(&count)
			Expect(tx.Error).To(BeNil())
			return count == 1
		}

		It("fails to migrate the db -- migration folder does not exist", func() {
			err := migrations.MigrateStore(gormdb, "some folder")
			Expect(err).NotTo(BeNil())
		})

		It("successfully migrates the db from a folder", func() {
			currentFolder, err := os.Getwd()
			Expect(err).To(BeNil())

			err = migrations.MigrateStore(gormdb, path.Join(currentFolder, "sql"))
			Expect(err).To(BeNil())

			for _, table := range []string{"users", "nonces", "sessions", "images", "nfts", "verifications"} {
				Expect(tableExists(table)).To(BeTrue())
			}
		})

		It("successfully migrates the db from the embedded migrations", func() {
			err := migrations.MigrateStore(gormdb, "")
			Expect(err).To(BeNil())
			Expect(tableExists("nfts")).To(BeTrue())
		})

		AfterEach(func() {
			gormdb.Exec("DROP TABLE IF EXISTS verifications;")
			gormdb.Exec("DROP TABLE IF EXISTS nfts;")
			gormdb.Exec("DROP TABLE IF EXISTS images;")
			gormdb.Exec("DROP TABLE IF EXISTS sessions;")
			gormdb.Exec("DROP TABLE IF EXISTS nonces;")
			gormdb.Exec("DROP TABLE IF EXISTS users;")
			gormdb.Exec("DROP TABLE IF EXISTS goose_db_version;")
		})
	})
})
