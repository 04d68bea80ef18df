package validators

import "go.mongodb.org/mongo-driver/bson"

var InstallmentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"invoice_id",
			"number",
			"amount_cents",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"invoice_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"number": bson.M{
				"bsonType": "int",
				"minimum":  2,
				"maximum":  6,
			},

			"amount_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"sessions_unlocked": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"paid",
					"rejected",
				},
			},

			"paid_at": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
