package database

import (
	"context"
)

const upsertWhatsappCredential = `
INSERT INTO whatsapp_credentials (business_id, endpoint_id, access_token, sender_id)
VALUES ($1, $2, $3, $4)
ON CONFLICT (business_id) DO UPDATE
SET endpoint_id = EXCLUDED.endpoint_id, access_token = EXCLUDED.access_token,
    sender_id = EXCLUDED.sender_id, updated_at = now()
RETURNING business_id, endpoint_id, access_token, sender_id, updated_at`

type UpsertWhatsappCredentialParams struct {
	BusinessID  int64  `json:"business_id"`
	EndpointID  string `json:"endpoint_id"`
	AccessToken string `json:"access_token"`
	SenderID    string `json:"sender_id"`
}

func (q *Queries) UpsertWhatsappCredential(ctx context.Context, arg UpsertWhatsappCredentialParams) (WhatsappCredential, error) {
	row := q.db.QueryRow(ctx, upsertWhatsappCredential, arg.BusinessID, arg.EndpointID, arg.AccessToken, arg.SenderID)
	var i WhatsappCredential
	err := row.Scan(&i.BusinessID, &i.EndpointID, &i.AccessToken, &i.SenderID, &i.UpdatedAt)
	return i, err
}

const getWhatsappCredential = `
SELECT business_id, endpoint_id, access_token, sender_id, updated_at
FROM whatsapp_credentials WHERE business_id = $1`

func (q *Queries) GetWhatsappCredential(ctx context.Context, businessID int64) (WhatsappCredential, error) {
	row := q.db.QueryRow(ctx, getWhatsappCredential, businessID)
	var i WhatsappCredential
	err := row.Scan(&i.BusinessID, &i.EndpointID, &i.AccessToken, &i.SenderID, &i.UpdatedAt)
	return i, err
}
