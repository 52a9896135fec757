package reporter_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"

	reporter "github.com/loadwatch/influx-reporter"
)

func Example_flushing() {
	received := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- string(body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	uploader, err := reporter.NewUploader(context.Background(), reporter.Config{
		URL:         server.URL,
		Application: "demo",
		Measurement: "jmeter",
	})
	if err != nil {
		log.Fatal(err)
	}

	uploader.OnWindowComplete(reporter.Record{
		Label:           "Login",
		Timestamp:       1000,
		SampleCount:     5,
		AvgResponseTime: 0.2,
		Percentiles:     map[string]float64{"90.0": 0.3, "100.0": 0.5},
		Concurrency:     3,
		ByteCount:       1000,
	})
	uploader.FlushAll()

	fmt.Print(<-received)

	//Output:
	//jmeter,application=demo,statut=ok,transaction=Login count=5,avg=200,min=0,max=500,pct90.0=0,pct95.0=0,pct99.0=0,maxAT=3,countError=0,txnsum=1000,txnstddev=0,ltavg=0,bytessum=1000,bytesavg=200.0 1000000
	//jmeter,application=demo,transaction=internal minAT=3,maxAT=3,meanAT=3,startedT=3,endedT=0 1000000
}
