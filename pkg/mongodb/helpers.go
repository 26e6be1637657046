package mongodb

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Now returns the current time in UTC truncated to the millisecond precision BSON stores.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// IncrementStamped builds a $inc of field that also stamps updatedAt.
func IncrementStamped(field string, delta int) bson.M {
	return bson.M{
		"$inc": bson.M{field: delta},
		"$set": bson.M{"updatedAt": Now()},
	}
}

// SortBy builds a sort document. A leading "-" sorts that field descending.
func SortBy(fields ...string) bson.D {
	sort := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if name, ok := strings.CutPrefix(f, "-"); ok {
			f, dir = name, -1
		}
		sort = append(sort, bson.E{Key: f, Value: dir})
	}
	return sort
}

// IsDuplicateKey reports whether err is a unique index violation.
func IsDuplicateKey(err error) bool {
	return err != nil && mongo.IsDuplicateKeyError(err)
}
