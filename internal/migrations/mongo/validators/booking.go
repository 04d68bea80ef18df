package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"student_id",
			"teacher_id",
			"lesson_id",
			"lesson_title",
			"lesson_kind",
			"duration_min",
			"amount_cents",
			"payment_method",
			"status",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"student_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"teacher_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"lesson_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"lesson_title": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"lesson_kind": bson.M{
				"bsonType": "string",
				"enum": []string{
					"individual",
					"group_course",
				},
			},

			"duration_min": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
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
					"accepted",
					"scheduled",
					"completed",
					"cancelled",
				},
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"is_installment": bson.M{
				"bsonType": "bool",
			},

			"total_installments": bson.M{
				"bsonType": "int",
				"minimum":  2,
				"maximum":  6,
			},

			"sessions_per_installment": bson.M{
				"bsonType": "int",
				"minimum":  1,
			},

			"installment_amount_cents": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"total_sessions": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"paid_sessions": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  50,
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
