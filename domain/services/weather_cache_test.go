package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"skywager/domain/entities"
	"skywager/domain/testhelpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestWeatherCache_FetchesEachCityOnce(t *testing.T) {
	ctx := context.Background()
	provider := &testhelpers.MockWeatherProvider{}
	provider.On("Current", mock.Anything, "London").
		Return(&entities.WeatherSnapshot{City: "London", Temperature: 12}, nil).Once()
	provider.On("Current", mock.Anything, "Paris").
		Return(&entities.WeatherSnapshot{City: "Paris", Temperature: 18}, nil).Once()

	cache := NewWeatherCache(provider)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			city := "London"
			if i%2 == 0 {
				city = "Paris"
			}
			snapshot, err := cache.Get(ctx, city)
			assert.NoError(t, err)
			assert.Equal(t, city, snapshot.City)
		}(i)
	}
	wg.Wait()

	// Case and whitespace variants share the entry
	snapshot, err := cache.Get(ctx, "  london ")
	require.NoError(t, err)
	assert.Equal(t, 12.0, snapshot.Temperature)

	assert.Equal(t, 2, cache.Fetches())
	provider.AssertExpectations(t)
}

func TestWeatherCache_MemoizesFailures(t *testing.T) {
	ctx := context.Background()
	provider := &testhelpers.MockWeatherProvider{}
	provider.On("Current", mock.Anything, "Atlantis").
		Return(nil, errors.New("city not found")).Once()

	cache := NewWeatherCache(provider)

	_, err := cache.Get(ctx, "Atlantis")
	assert.Error(t, err)
	_, err = cache.Get(ctx, "Atlantis")
	assert.Error(t, err)

	assert.Equal(t, 1, cache.Fetches())
	provider.AssertExpectations(t)
}

func TestWeatherCache_GetAll(t *testing.T) {
	ctx := context.Background()
	provider := &testhelpers.MockWeatherProvider{}
	provider.On("Current", mock.Anything, "Oslo").
		Return(&entities.WeatherSnapshot{City: "Oslo"}, nil).Once()
	provider.On("Current", mock.Anything, "Rome").
		Return(nil, errors.New("timeout")).Once()

	cache := NewWeatherCache(provider)

	snapshots, err := cache.GetAll(ctx, []string{"Oslo"})
	require.NoError(t, err)
	assert.Contains(t, snapshots, "oslo")

	_, err = cache.GetAll(ctx, []string{"Oslo", "Rome"})
	assert.Error(t, err)
	assert.Equal(t, 2, cache.Fetches())
}
