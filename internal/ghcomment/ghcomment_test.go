package ghcomment_test

import (
	"strings"
	"testing"

	"github.com/jetsetilly/membrowse/internal/ghcomment"
	"github.com/jetsetilly/membrowse/internal/model"
	"github.com/jetsetilly/membrowse/test"
)

func TestBodyWithComparisonURL(t *testing.T) {
	report := model.Report{
		MemoryLayout: map[string]model.MemoryRegion{
			"FLASH": {Type: model.RegionFlash, UsedSize: 1024, LimitSize: 4096, UtilizationPercent: 25.0},
		},
	}

	body, err := ghcomment.Body(report, "https://membrowse.example/compare/1")
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(body, "<!-- membrowse-pr-comment -->"))
	test.ExpectSuccess(t, strings.Contains(body, "https://membrowse.example/compare/1"))
	test.ExpectSuccess(t, strings.Contains(body, "FLASH"))
	test.ExpectSuccess(t, strings.Contains(body, "25.0%"))
}

func TestBodyWithoutComparisonURL(t *testing.T) {
	body, err := ghcomment.Body(model.Report{}, "")
	test.ExpectSuccess(t, err == nil)
	test.ExpectSuccess(t, strings.Contains(body, "Build comparison not available"))
}

func TestBodyOrdersRegionsByName(t *testing.T) {
	report := model.Report{
		MemoryLayout: map[string]model.MemoryRegion{
			"RAM":   {Type: model.RegionRAM},
			"FLASH": {Type: model.RegionFlash},
		},
	}
	body, err := ghcomment.Body(report, "")
	test.ExpectSuccess(t, err == nil)

	test.ExpectSuccess(t, strings.Index(body, "FLASH") < strings.Index(body, "RAM"))
}
