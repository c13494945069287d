package memstore_test

import (
	"testing"

	"github.com/nalberthy/url-shorten/internal/app/shortlink"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/memstore"
	"github.com/nalberthy/url-shorten/internal/app/shortlink/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) shortlink.Store {
		return memstore.New()
	})
}
