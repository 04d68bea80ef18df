package validators

import "go.mongodb.org/mongo-driver/bson"

var InvoiceValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"amount_cents",
			"payment_method",
			"status",
			"external_ref",
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

			"amount_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"payment_method": bson.M{
				"bsonType": "string",
				"enum": []string{
					"card",
					"wallet",
					"bank_transfer",
					"cash_receipt",
				},
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"paid",
					"rejected",
				},
			},

			"external_ref": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 200,
			},

			"receipt_ref": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"initiating": bson.M{
				"bsonType": "bool",
			},

			"admin_notes": bson.M{
				"bsonType":  "string",
				"maxLength": 1000,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"decided_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
