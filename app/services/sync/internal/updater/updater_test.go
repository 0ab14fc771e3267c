package updater

import (
	"testing"

	"MarketLink/app/common/consts/biz"
	appdal "MarketLink/app/dal/app"

	"github.com/stretchr/testify/assert"
)

func TestRequiresCatalog(t *testing.T) {
	assert.False(t, RequiresCatalog(biz.SyncModeApiOnly))
	assert.True(t, RequiresCatalog(biz.SyncModeFeed))
	assert.True(t, RequiresCatalog(""))
	assert.True(t, RequiresCatalog("anything-else"))
}

func TestFactorySelectsStrategyBySyncMode(t *testing.T) {
	f := &Factory{}

	_, ok := f.ForApp(&appdal.Apps{SyncMode: biz.SyncModeApiOnly}).(*apiUpdater)
	assert.True(t, ok)

	_, ok = f.ForApp(&appdal.Apps{SyncMode: biz.SyncModeFeed}).(*feedUpdater)
	assert.True(t, ok)

	_, ok = f.ForApp(&appdal.Apps{}).(*feedUpdater)
	assert.True(t, ok)
}
