package store

import (
	"github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model"
	storeRedshift "github.com/aws-solutions/clickstream-analytics-on-aws-sub000/model/store/redshift"
)

// GetStore - Should decide on which model implementation to use by
// configuration and return the store.
func GetStore() model.Model {
	var store model.Model
	store = &storeRedshift.Redshift{}
	return store
}
