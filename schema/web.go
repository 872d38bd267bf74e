package schema

import "time"

type GetStatusResponse struct {
	LatestBlockNumber uint64    `json:"latestBlockNumber"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type GetHealthResponse struct {
	MongoDB string `json:"mongodb"`
	Redis   string `json:"redis"`
}
