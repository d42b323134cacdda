package service_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"plugin-directory-backend/internal/cache"
	"plugin-directory-backend/internal/database/models"
	apperrors "plugin-directory-backend/internal/errors"
	"plugin-directory-backend/internal/mocks"
	"plugin-directory-backend/internal/repository/memstore"
	"plugin-directory-backend/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
	"gorm.io/datatypes"
)

type PluginServiceTestSuite struct {
	suite.Suite
	store   *memstore.Store
	service *service.PluginService
	clock   time.Time
}

func (suite *PluginServiceTestSuite) SetupTest() {
	suite.store = memstore.New()
	suite.clock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	suite.service = service.NewPluginService(suite.store, validator.New(), cache.NewInMemoryCache(cache.DefaultCacheConfig()))
	suite.service.SetClock(func() time.Time { return suite.clock })
}

// syncPlugin stores a sync record whose metadata is payload encoded as JSON
func (suite *PluginServiceTestSuite) syncPlugin(slug string, payload map[string]interface{}) *models.SyncPlugin {
	sp := &models.SyncPlugin{
		Slug:           slug,
		Name:           "Sync " + slug,
		CurrentVersion: "1.0.0",
		Status:         "open",
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		suite.Require().NoError(err)
		sp.Metadata = datatypes.JSON(b)
	}
	suite.Require().NoError(suite.store.SyncPlugins().Create(sp))
	return sp
}

// setMetadata replaces the payload of an existing sync record
func (suite *PluginServiceTestSuite) setMetadata(sp *models.SyncPlugin, payload map[string]interface{}) {
	b, err := json.Marshal(payload)
	suite.Require().NoError(err)
	sp.Metadata = datatypes.JSON(b)
	suite.Require().NoError(suite.store.SyncPlugins().Update(sp))
}

func fullPayload(slug string) map[string]interface{} {
	return map[string]interface{}{
		"slug":                     slug,
		"name":                     "Akismet Anti-spam",
		"version":                  "5.3.1",
		"short_description":        "Spam protection for WordPress",
		"description":              "<p>Akismet checks your comments.</p>",
		"author":                   "Automattic",
		"author_profile":           "https://profiles.wordpress.org/automattic/",
		"requires":                 "5.8",
		"requires_php":             "5.6.20",
		"tested":                   "6.5.3",
		"download_link":            "https://downloads.wordpress.org/plugin/akismet.5.3.1.zip",
		"added":                    "2005-10-20",
		"last_updated":             "2024-05-13 3:43pm GMT",
		"rating":                   94,
		"num_ratings":              1012,
		"support_threads":          12,
		"support_threads_resolved": 10,
		"active_installs":          6000000,
		"downloaded":               335000000,
		"homepage":                 "https://akismet.com/",
		"donate_link":              "https://akismet.com/donate",
		"business_model":           "commercial",
		"commercial_support_url":   "https://akismet.com/support",
		"support_url":              "https://wordpress.org/support/plugin/akismet/",
		"preview_link":             "https://playground.wordpress.net/?plugin=akismet",
		"repository_url":           "https://github.com/Automattic/akismet",
		"ratings":                  map[string]interface{}{"5": 800, "1": 100},
		"banners":                  map[string]interface{}{"low": "https://ps.w.org/akismet/assets/banner-772x250.png"},
		"contributors":             map[string]interface{}{"automattic": map[string]interface{}{"display_name": "Automattic"}},
		"icons":                    map[string]interface{}{"1x": "https://ps.w.org/akismet/assets/icon-128x128.png"},
		"source":                   map[string]interface{}{"type": "svn"},
		"requires_plugins":         []interface{}{},
		"compatibility":            []interface{}{},
		"screenshots":              map[string]interface{}{"1": map[string]interface{}{"caption": "Stats"}},
		"sections":                 map[string]interface{}{"description": "<p>Akismet checks your comments.</p>"},
		"versions":                 map[string]interface{}{"5.3.1": "https://downloads.wordpress.org/plugin/akismet.5.3.1.zip"},
		"upgrade_notice":           map[string]interface{}{"5.3.1": "Bug fixes"},
		"tags":                     map[string]interface{}{"spam": "spam", "anti-spam": "Anti-spam"},
	}
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_CopiesEveryField() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	suite.Nil(plugin.PendingTags)

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)

	suite.Equal(plugin.ID, stored.ID)
	suite.Equal(sp.ID, stored.SyncID)
	suite.Equal("akismet", stored.Slug)
	suite.Equal("Akismet Anti-spam", stored.Name)
	suite.Equal("5.3.1", stored.Version)
	suite.Equal("Spam protection for WordPress", stored.ShortDescription)
	suite.Equal("<p>Akismet checks your comments.</p>", stored.Description)
	suite.Equal("Automattic", stored.Author)
	suite.Equal("5.8", stored.Requires)
	suite.Require().NotNil(stored.RequiresPHP)
	suite.Equal("5.6.20", *stored.RequiresPHP)
	suite.Equal("6.5.3", stored.Tested)
	suite.Equal("https://downloads.wordpress.org/plugin/akismet.5.3.1.zip", stored.DownloadLink)
	suite.True(stored.Added.Equal(time.Date(2005, 10, 20, 0, 0, 0, 0, time.UTC)))
	suite.Require().NotNil(stored.LastUpdated)
	suite.True(stored.LastUpdated.Equal(time.Date(2024, 5, 13, 15, 43, 0, 0, time.UTC)))
	suite.Require().NotNil(stored.AuthorProfile)
	suite.Equal("https://profiles.wordpress.org/automattic/", *stored.AuthorProfile)

	suite.Equal(94, stored.Rating)
	suite.Equal(1012, stored.NumRatings)
	suite.Equal(12, stored.SupportThreads)
	suite.Equal(10, stored.SupportThreadsResolved)
	suite.Equal(6000000, stored.ActiveInstalls)
	suite.Equal(335000000, stored.Downloaded)

	suite.Equal("https://akismet.com/", *stored.Homepage)
	suite.Equal("https://akismet.com/donate", *stored.DonateLink)
	suite.Equal("commercial", *stored.BusinessModel)
	suite.Equal("https://akismet.com/support", *stored.CommercialSupportURL)
	suite.Equal("https://wordpress.org/support/plugin/akismet/", *stored.SupportURL)
	suite.Equal("https://playground.wordpress.net/?plugin=akismet", *stored.PreviewLink)
	suite.Equal("https://github.com/Automattic/akismet", *stored.RepositoryURL)

	suite.JSONEq(`{"5": 800, "1": 100}`, string(stored.Ratings))
	suite.JSONEq(`{"low": "https://ps.w.org/akismet/assets/banner-772x250.png"}`, string(stored.Banners))
	suite.JSONEq(`{"automattic": {"display_name": "Automattic"}}`, string(stored.Contributors))
	suite.JSONEq(`{"1x": "https://ps.w.org/akismet/assets/icon-128x128.png"}`, string(stored.Icons))
	suite.JSONEq(`{"type": "svn"}`, string(stored.Source))
	suite.JSONEq(`[]`, string(stored.RequiresPlugins))
	suite.JSONEq(`[]`, string(stored.Compatibility))
	suite.JSONEq(`{"1": {"caption": "Stats"}}`, string(stored.Screenshots))
	suite.JSONEq(`{"description": "<p>Akismet checks your comments.</p>"}`, string(stored.Sections))
	suite.JSONEq(`{"5.3.1": "https://downloads.wordpress.org/plugin/akismet.5.3.1.zip"}`, string(stored.Versions))
	suite.JSONEq(`{"5.3.1": "Bug fixes"}`, string(stored.UpgradeNotice))

	tags, err := suite.service.Tags(stored)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"spam": "spam", "anti-spam": "Anti-spam"}, tags)
	suite.Equal(1, suite.store.TransactionCount())
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_Defaults() {
	sp := suite.syncPlugin("hello-dolly", map[string]interface{}{"slug": "hello-dolly"})

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	suite.Equal("Sync hello-dolly", plugin.Name)
	suite.Equal("1.0.0", plugin.Version)
	suite.Equal("", plugin.ShortDescription)
	suite.Equal("", plugin.Author)
	suite.Equal("", plugin.DownloadLink)
	suite.True(plugin.Added.Equal(suite.clock))
	suite.Nil(plugin.LastUpdated)
	suite.Nil(plugin.RequiresPHP)
	suite.Nil(plugin.Homepage)
	suite.Nil(plugin.DonateLink)
	suite.Equal(0, plugin.Rating)
	suite.Equal(0, plugin.ActiveInstalls)
	suite.Nil(plugin.Ratings)
	suite.Nil(plugin.Sections)

	tags, err := suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Empty(tags)
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_Truncation() {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "shorter", input: strings.Repeat("a", 100), expected: strings.Repeat("a", 100)},
		{name: "equal", input: strings.Repeat("a", 149), expected: strings.Repeat("a", 149)},
		{name: "longer", input: strings.Repeat("a", 300), expected: strings.Repeat("a", 149)},
		{name: "multibyte at boundary", input: strings.Repeat("a", 148) + "日本語", expected: strings.Repeat("a", 148) + "日"},
	}

	for i, tt := range tests {
		suite.Run(tt.name, func() {
			slug := "plugin-" + string(rune('a'+i))
			sp := suite.syncPlugin(slug, map[string]interface{}{
				"slug":              slug,
				"short_description": tt.input,
			})
			plugin, err := suite.service.CreateFromSyncPlugin(sp)
			suite.Require().NoError(err)
			suite.Equal(tt.expected, plugin.ShortDescription)
		})
	}
}

func (suite *PluginServiceTestSuite) TestFillFromMetadata_BoundedFields() {
	plugin := &models.Plugin{Slug: "akismet"}

	author := strings.Repeat("a", 254) + "éx"
	exactURL := "https://example.org/" + strings.Repeat("u", 1024-len("https://example.org/"))
	longURL := exactURL + "/more"
	shortURL := "https://example.org/"

	err := suite.service.FillFromMetadata(plugin, &service.PluginMetadata{
		Slug:                 "akismet",
		ShortDescription:     strings.Repeat("ü", 150),
		Author:               author,
		DownloadLink:         longURL,
		DonateLink:           &exactURL,
		SupportURL:           &longURL,
		CommercialSupportURL: &shortURL,
		PreviewLink:          &longURL,
		RepositoryURL:        &longURL,
	})
	suite.Require().NoError(err)

	suite.Equal(service.ShortDescriptionLength, utf8.RuneCountInString(plugin.ShortDescription))
	suite.Equal(strings.Repeat("a", 254)+"é", plugin.Author)
	suite.Equal(exactURL, plugin.DownloadLink)
	suite.Equal(exactURL, *plugin.DonateLink)
	suite.Equal(exactURL, *plugin.SupportURL)
	suite.Equal(shortURL, *plugin.CommercialSupportURL)
	suite.Equal(exactURL, *plugin.PreviewLink)
	suite.Equal(exactURL, *plugin.RepositoryURL)
	suite.Nil(plugin.PendingTags)
}

func (suite *PluginServiceTestSuite) TestFillFromMetadata_SlugMismatchLeavesPluginUntouched() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	snapshot := *plugin
	name := "Hello Dolly"
	err = suite.service.FillFromMetadata(plugin, &service.PluginMetadata{
		Slug:             "hello-dolly",
		Name:             &name,
		ShortDescription: "changed",
		Rating:           1,
		Tags:             map[string]string{"lyrics": "Lyrics"},
	})

	suite.Require().Error(err)
	suite.True(apperrors.IsSlugMismatch(err))
	suite.Equal("metadata slug does not match [hello-dolly !== akismet]", err.Error())
	var mismatch *apperrors.SlugMismatchError
	suite.Require().True(errors.As(err, &mismatch))
	suite.Equal("akismet", mismatch.Expected)
	suite.Equal("hello-dolly", mismatch.Actual)
	suite.Equal(snapshot, *plugin)
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_SlugMismatchRollsBack() {
	sp := suite.syncPlugin("akismet", fullPayload("jetpack"))

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Nil(plugin)
	suite.True(apperrors.IsSlugMismatch(err))
	suite.Equal(0, suite.store.PluginCount())
	suite.Equal(0, suite.store.TagCount())
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_MissingMetadata() {
	for _, raw := range []string{"", "null", "{}", "[]", "{ }", "{}\n", "null\n", " [ ] ", "\t{\n}\t"} {
		sp := &models.SyncPlugin{Slug: "empty", Name: "Empty", Metadata: datatypes.JSON(raw)}
		sp.ID = uuid.New()

		plugin, err := suite.service.CreateFromSyncPlugin(sp)
		suite.Nil(plugin)
		suite.True(apperrors.IsMissingMetadata(err), "metadata %q", raw)
	}
	suite.Equal(0, suite.store.PluginCount())
	suite.Equal(0, suite.store.TransactionCount())
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_InvalidMetadata() {
	sp := suite.syncPlugin("broken", nil)
	sp.Metadata = datatypes.JSON(`"just a string"`)

	_, err := suite.service.CreateFromSyncPlugin(sp)
	suite.ErrorIs(err, apperrors.ErrInvalidMetadata)
	suite.Equal(0, suite.store.PluginCount())
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_RollsBackOnTagFailure() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	boom := errors.New("connection reset")
	suite.store.FailOn(memstore.OpAttachTag, boom)

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Nil(plugin)
	suite.ErrorIs(err, boom)
	suite.Equal(0, suite.store.PluginCount())
	suite.Equal(0, suite.store.TagCount())

	suite.store.FailOn(memstore.OpAttachTag, nil)
	plugin, err = suite.service.GetOrCreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	suite.Equal("akismet", plugin.Slug)
	suite.Equal(1, suite.store.PluginCount())
}

func (suite *PluginServiceTestSuite) TestGetOrCreateFromSyncPlugin_Idempotent() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))

	first, err := suite.service.GetOrCreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	second, err := suite.service.GetOrCreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	suite.Equal(first.ID, second.ID)
	suite.Equal(1, suite.store.PluginCount())
	suite.Equal(1, suite.store.TransactionCount())
}

func (suite *PluginServiceTestSuite) TestGetOrCreateFromSyncPlugin_ReturnsExistingUnchanged() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	first, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	payload := fullPayload("akismet")
	payload["name"] = "Renamed"
	suite.setMetadata(sp, payload)

	fresh := service.NewPluginService(suite.store, validator.New(), cache.NewNoOpCache())
	got, err := fresh.GetOrCreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	suite.Equal(first.ID, got.ID)
	suite.Equal("Akismet Anti-spam", got.Name)
}

func (suite *PluginServiceTestSuite) TestGetOrCreateFromSyncPlugin_NilSyncPlugin() {
	_, err := suite.service.GetOrCreateFromSyncPlugin(nil)
	suite.ErrorIs(err, apperrors.ErrSyncPluginNotFound)
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_ReplacesTags() {
	payload := fullPayload("akismet")
	payload["tags"] = map[string]interface{}{"security": "Security", "performance": "Performance"}
	sp := suite.syncPlugin("akismet", payload)

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	tags, err := suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"security": "Security", "performance": "Performance"}, tags)

	payload["tags"] = map[string]interface{}{"security": "Security"}
	suite.setMetadata(sp, payload)
	_, err = suite.service.UpdateFromSyncPlugin(plugin)
	suite.Require().NoError(err)

	tags, err = suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"security": "Security"}, tags)
	suite.Equal(1, suite.store.LinkCount(plugin.ID))
	suite.Equal(2, suite.store.TagCount())
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_EmptyTagsDetachAll() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	suite.Equal(2, suite.store.LinkCount(plugin.ID))

	payload := fullPayload("akismet")
	payload["tags"] = []interface{}{}
	suite.setMetadata(sp, payload)
	_, err = suite.service.UpdateFromSyncPlugin(plugin)
	suite.Require().NoError(err)
	suite.Equal(0, suite.store.LinkCount(plugin.ID))
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_AbsentTagsKeepLinks() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	payload := fullPayload("akismet")
	delete(payload, "tags")
	payload["version"] = "5.4"
	suite.setMetadata(sp, payload)

	updated, err := suite.service.UpdateFromSyncPlugin(plugin)
	suite.Require().NoError(err)
	suite.Equal("5.4", updated.Version)
	suite.Equal(2, suite.store.LinkCount(plugin.ID))
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_KeepsAddedAndNameWhenAbsent() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	added := plugin.Added

	suite.setMetadata(sp, map[string]interface{}{"slug": "akismet", "added": "garbage"})
	suite.clock = suite.clock.Add(48 * time.Hour)

	updated, err := suite.service.UpdateFromSyncPlugin(plugin)
	suite.Require().NoError(err)
	suite.True(updated.Added.Equal(added))
	suite.Equal("Akismet Anti-spam", updated.Name)
	suite.Equal("5.3.1", updated.Version)
	suite.Equal("", updated.Author)
	suite.Nil(updated.Homepage)
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_SlugMismatch() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	snapshot := *plugin

	suite.setMetadata(sp, fullPayload("jetpack"))
	_, err = suite.service.UpdateFromSyncPlugin(plugin)
	suite.True(apperrors.IsSlugMismatch(err))
	suite.Equal(snapshot, *plugin)

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)
	suite.Equal("Akismet Anti-spam", stored.Name)
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_MissingMetadata() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	sp.Metadata = nil
	suite.Require().NoError(suite.store.SyncPlugins().Update(sp))

	_, err = suite.service.UpdateFromSyncPlugin(plugin)
	suite.True(apperrors.IsMissingMetadata(err))
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_SyncPluginGone() {
	plugin := &models.Plugin{Slug: "orphan", SyncID: uuid.New()}

	_, err := suite.service.UpdateFromSyncPlugin(plugin)
	suite.ErrorIs(err, apperrors.ErrSyncPluginNotFound)
}

func (suite *PluginServiceTestSuite) TestUpdateFromSyncPlugin_FailureLeavesPluginUnchanged() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)
	snapshot := *plugin

	payload := fullPayload("akismet")
	payload["name"] = "Renamed"
	payload["tags"] = map[string]interface{}{"security": "Security"}
	suite.setMetadata(sp, payload)

	boom := errors.New("deadlock detected")
	suite.store.FailOn(memstore.OpTagFirstOrCreate, boom)
	_, err = suite.service.UpdateFromSyncPlugin(plugin)
	suite.ErrorIs(err, boom)
	suite.Equal(snapshot, *plugin)

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)
	suite.Equal("Akismet Anti-spam", stored.Name)
	tags, err := suite.service.Tags(stored)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"spam": "spam", "anti-spam": "Anti-spam"}, tags)
}

func (suite *PluginServiceTestSuite) TestTags_SharedTagKeepsFirstName() {
	first := fullPayload("akismet")
	first["tags"] = map[string]interface{}{"security": "Security"}
	second := fullPayload("wordfence")
	second["tags"] = map[string]interface{}{"security": "SECURITY"}

	a, err := suite.service.CreateFromSyncPlugin(suite.syncPlugin("akismet", first))
	suite.Require().NoError(err)
	b, err := suite.service.CreateFromSyncPlugin(suite.syncPlugin("wordfence", second))
	suite.Require().NoError(err)

	suite.Equal(1, suite.store.TagCount())
	tagsA, err := suite.service.Tags(a)
	suite.Require().NoError(err)
	tagsB, err := suite.service.Tags(b)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"security": "Security"}, tagsA)
	suite.Equal(map[string]string{"security": "Security"}, tagsB)
}

func (suite *PluginServiceTestSuite) TestTags_StagedTagsAreInvisible() {
	sp := suite.syncPlugin("akismet", fullPayload("akismet"))
	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	err = suite.service.FillFromMetadata(plugin, &service.PluginMetadata{
		Slug: "akismet",
		Tags: map[string]string{"performance": "Performance"},
	})
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"performance": "Performance"}, plugin.PendingTags)

	tags, err := suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"spam": "spam", "anti-spam": "Anti-spam"}, tags)

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)
	suite.Nil(stored.PendingTags)
}

func (suite *PluginServiceTestSuite) TestGetBySlug_NotFound() {
	_, err := suite.service.GetBySlug("missing")
	suite.ErrorIs(err, apperrors.ErrPluginNotFound)
	suite.True(apperrors.IsNotFound(err))
}

func (suite *PluginServiceTestSuite) TestValidationRejectsOversizedSlug() {
	slug := strings.Repeat("s", 256)
	sp := suite.syncPlugin(slug, map[string]interface{}{"slug": slug})

	_, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().Error(err)
	suite.True(apperrors.IsValidation(err))
	var validationErr *apperrors.ValidationError
	suite.Require().True(errors.As(err, &validationErr))
	suite.Equal("Slug", validationErr.Field)
	suite.Equal("failed on max=255", validationErr.Message)
	suite.Equal(0, suite.store.PluginCount())
}

func (suite *PluginServiceTestSuite) TestSave_ReplacesStagedTags() {
	payload := fullPayload("akismet")
	payload["tags"] = map[string]interface{}{"security": "Security", "performance": "Performance"}
	plugin, err := suite.service.CreateFromSyncPlugin(suite.syncPlugin("akismet", payload))
	suite.Require().NoError(err)
	suite.Equal(2, suite.store.LinkCount(plugin.ID))

	meta, err := service.ParseMetadata([]byte(`{"slug": "akismet", "name": "Akismet", "tags": {"security": "Security"}}`))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.service.FillFromMetadata(plugin, meta))
	suite.Require().NoError(suite.service.Save(plugin))
	suite.Nil(plugin.PendingTags)

	tags, err := suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{"security": "Security"}, tags)
	suite.Equal(1, suite.store.LinkCount(plugin.ID))

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)
	suite.Equal("Akismet", stored.Name)
}

func (suite *PluginServiceTestSuite) TestSave_WithoutStagedTagsKeepsLinks() {
	plugin, err := suite.service.CreateFromSyncPlugin(suite.syncPlugin("akismet", fullPayload("akismet")))
	suite.Require().NoError(err)

	plugin.Version = "9.9"
	suite.Require().NoError(suite.service.Save(plugin))

	stored, err := suite.service.GetBySlug("akismet")
	suite.Require().NoError(err)
	suite.Equal("9.9", stored.Version)
	suite.Equal(2, suite.store.LinkCount(plugin.ID))
}

func (suite *PluginServiceTestSuite) TestSave_FailureKeepsStagedTags() {
	plugin, err := suite.service.CreateFromSyncPlugin(suite.syncPlugin("akismet", fullPayload("akismet")))
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.FillFromMetadata(plugin, &service.PluginMetadata{
		Slug: "akismet",
		Tags: map[string]string{"security": "Security"},
	}))
	boom := errors.New("connection reset")
	suite.store.FailOn(memstore.OpAttachTag, boom)

	suite.ErrorIs(suite.service.Save(plugin), boom)
	suite.Equal(map[string]string{"security": "Security"}, plugin.PendingTags)
	suite.Equal(2, suite.store.LinkCount(plugin.ID))
}

func (suite *PluginServiceTestSuite) TestNilPluginIsNotFound() {
	_, err := suite.service.UpdateFromSyncPlugin(nil)
	suite.ErrorIs(err, apperrors.ErrPluginNotFound)

	suite.ErrorIs(suite.service.FillFromMetadata(nil, &service.PluginMetadata{Slug: "akismet"}), apperrors.ErrPluginNotFound)
	suite.ErrorIs(suite.service.FillFromMetadata(nil, nil), apperrors.ErrPluginNotFound)
	suite.ErrorIs(suite.service.Save(nil), apperrors.ErrPluginNotFound)

	_, err = suite.service.Tags(nil)
	suite.ErrorIs(err, apperrors.ErrPluginNotFound)
	suite.Equal(0, suite.store.TransactionCount())
}

func (suite *PluginServiceTestSuite) TestCreateFromSyncPlugin_OversizedShortTextIsTruncated() {
	long := strings.Repeat("v", 300)
	tagSlug := strings.Repeat("t", 300)
	sp := suite.syncPlugin("akismet", map[string]interface{}{
		"slug":           "akismet",
		"version":        long,
		"requires":       long,
		"tested":         long,
		"requires_php":   long,
		"business_model": long,
		"tags":           map[string]interface{}{tagSlug: long},
	})
	sp.CurrentVersion = long
	suite.Require().NoError(suite.store.SyncPlugins().Update(sp))

	plugin, err := suite.service.CreateFromSyncPlugin(sp)
	suite.Require().NoError(err)

	want := strings.Repeat("v", service.ShortTextLength)
	suite.Equal(want, plugin.Version)
	suite.Equal(want, plugin.Requires)
	suite.Equal(want, plugin.Tested)
	suite.Equal(want, *plugin.RequiresPHP)
	suite.Equal(want, *plugin.BusinessModel)

	tags, err := suite.service.Tags(plugin)
	suite.Require().NoError(err)
	suite.Equal(map[string]string{strings.Repeat("t", service.ShortTextLength): want}, tags)
}

func TestPluginServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PluginServiceTestSuite))
}

func TestGetOrCreateFromSyncPlugin_DropsStaleCacheEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := memstore.New()

	sp := &models.SyncPlugin{Slug: "akismet", Name: "Akismet", CurrentVersion: "5.3", Metadata: datatypes.JSON(`{"slug":"akismet"}`)}
	if err := store.SyncPlugins().Create(sp); err != nil {
		t.Fatal(err)
	}
	created, err := service.NewPluginService(store, validator.New(), cache.NewNoOpCache()).CreateFromSyncPlugin(sp)
	if err != nil {
		t.Fatal(err)
	}

	key := cache.BuildKey(cache.KeyPrefixPluginBySyncID, sp.ID.String())
	stale, _ := json.Marshal(uuid.New())

	mockCache := mocks.NewMockCacheService(ctrl)
	gomock.InOrder(
		mockCache.EXPECT().Get(key).Return(stale, nil),
		mockCache.EXPECT().Delete(key).Return(nil),
		mockCache.EXPECT().Get(key).Return(nil, cache.ErrCacheMiss),
		mockCache.EXPECT().Set(key, gomock.Any(), gomock.Any()).Return(nil),
	)

	svc := service.NewPluginService(store, validator.New(), mockCache)
	got, err := svc.GetOrCreateFromSyncPlugin(sp)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected plugin %s, got %s", created.ID, got.ID)
	}
	if store.PluginCount() != 1 {
		t.Fatalf("expected one plugin, got %d", store.PluginCount())
	}
}

func TestGetOrCreateFromSyncPlugin_UsesCachedID(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := memstore.New()

	sp := &models.SyncPlugin{Slug: "akismet", Name: "Akismet", CurrentVersion: "5.3", Metadata: datatypes.JSON(`{"slug":"akismet"}`)}
	if err := store.SyncPlugins().Create(sp); err != nil {
		t.Fatal(err)
	}
	created, err := service.NewPluginService(store, validator.New(), cache.NewNoOpCache()).CreateFromSyncPlugin(sp)
	if err != nil {
		t.Fatal(err)
	}

	key := cache.BuildKey(cache.KeyPrefixPluginBySyncID, sp.ID.String())
	cached, _ := json.Marshal(created.ID)

	mockCache := mocks.NewMockCacheService(ctrl)
	mockCache.EXPECT().Get(key).Return(cached, nil).Times(2)

	svc := service.NewPluginService(store, validator.New(), mockCache)
	for i := 0; i < 2; i++ {
		got, err := svc.GetOrCreateFromSyncPlugin(sp)
		if err != nil {
			t.Fatal(err)
		}
		if got.ID != created.ID {
			t.Fatalf("expected plugin %s, got %s", created.ID, got.ID)
		}
	}
}
