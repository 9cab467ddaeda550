package validators

import "go.mongodb.org/mongo-driver/bson"

var HoldValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"unit_id",
			"range",
			"status",
			"created_at",
			"expires_at",
			"purge_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 36,
				"maxLength": 36,
			},

			"unit_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"range": bson.M{
				"bsonType": "object",
				"required": []string{"start_date", "end_date"},
				"properties": bson.M{
					"start_date": bson.M{"bsonType": "date"},
					"end_date":   bson.M{"bsonType": "date"},
				},
			},

			"status": bson.M{
				"enum": []string{"active", "confirmed", "released", "expired"},
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 128,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"expires_at": bson.M{
				"bsonType": "date",
			},

			"closed_at": bson.M{
				"bsonType": "date",
			},

			"purge_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
