package extract

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/enrich-cli/internal/model"
)

func TestKeywordExtract_Industry(t *testing.T) {
	content := &model.ScrapedContent{
		Text: "# Acme\nWe provide a SaaS platform with a developer API for widget automation.",
	}

	data := keywordExtract(content, "Acme", "")
	assert.Equal(t, "Acme", data.Name)
	assert.Equal(t, "software", data.Industry)
}

func TestKeywordExtract_IndustryHintWins(t *testing.T) {
	content := &model.ScrapedContent{Text: "We provide a SaaS platform."}

	data := keywordExtract(content, "Acme", "Fintech")
	assert.Equal(t, "fintech", data.Industry)
}

func TestKeywordExtract_EmployeeCount(t *testing.T) {
	content := &model.ScrapedContent{
		Text: "Our team of 1,200 employees ships widgets worldwide.",
	}

	data := keywordExtract(content, "Acme", "")
	require.NotNil(t, data.EmployeeCount)
	assert.Equal(t, 1200, *data.EmployeeCount)
	assert.Equal(t, model.SizeEnterprise, data.Size)
}

func TestKeywordExtract_FoundedYear(t *testing.T) {
	content := &model.ScrapedContent{Text: "Founded in 1987, Acme has led the market."}

	data := keywordExtract(content, "Acme", "")
	require.NotNil(t, data.FoundedYear)
	assert.Equal(t, 1987, *data.FoundedYear)
}

func TestKeywordExtract_FoundedYearOutOfRangeIgnored(t *testing.T) {
	content := &model.ScrapedContent{Text: "Established 1492 by explorers. Founded in 2999."}

	data := keywordExtract(content, "Acme", "")
	assert.Nil(t, data.FoundedYear)
}

func TestKeywordExtract_NeverInvents(t *testing.T) {
	content := &model.ScrapedContent{Text: "A page with no extractable facts whatsoever."}

	data := keywordExtract(content, "Acme", "")
	assert.Equal(t, "Acme", data.Name)
	assert.Empty(t, data.Industry)
	assert.Nil(t, data.EmployeeCount)
	assert.Nil(t, data.FoundedYear)
	assert.Empty(t, data.Email)
	assert.Empty(t, data.Phone)
}

func TestKeywordExtract_DescriptionFromMeta(t *testing.T) {
	content := &model.ScrapedContent{
		Text:        "Some body text.",
		Description: "Acme builds widgets.",
	}

	data := keywordExtract(content, "Acme", "")
	assert.Equal(t, "Acme builds widgets.", data.Description)
}

func TestSizeForEmployeeCount(t *testing.T) {
	cases := []struct {
		count int
		want  model.CompanySize
	}{
		{0, model.SizeUnknown},
		{1, model.SizeMicro},
		{10, model.SizeMicro},
		{11, model.SizeSmall},
		{200, model.SizeMedium},
		{500, model.SizeLarge},
		{1000, model.SizeVeryLarge},
		{1001, model.SizeEnterprise},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, SizeForEmployeeCount(c.count), "count %d", c.count)
	}
}

func TestFoundedYearRegex_UpperBoundIsCurrentYear(t *testing.T) {
	year := time.Now().Year()
	content := &model.ScrapedContent{Text: "Founded in " + strconv.Itoa(year) + "."}

	data := keywordExtract(content, "Acme", "")
	require.NotNil(t, data.FoundedYear)
	assert.Equal(t, year, *data.FoundedYear)
}
