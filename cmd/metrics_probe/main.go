package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// metrics_probe 抓取运行中做市进程的 /metrics，打印 mm_deepbook_* 指标，
// 用于上线后快速确认报价/下单/RPC 状态。
func main() {
	url := flag.String("url", "http://127.0.0.1:9101/metrics", "做市进程指标地址")
	prefix := flag.String("prefix", "mm_deepbook_", "只显示该前缀的指标")
	timeout := flag.Duration("timeout", 5*time.Second, "请求超时")
	flag.Parse()

	resp, err := resty.New().SetTimeout(*timeout).R().Get(*url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scrape %s: %v\n", *url, err)
		os.Exit(1)
	}
	if resp.IsError() {
		fmt.Fprintf(os.Stderr, "scrape %s: status %d\n", *url, resp.StatusCode())
		os.Exit(1)
	}

	lines, err := summarize(resp.Body(), *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse metrics: %v\n", err)
		os.Exit(1)
	}
	if len(lines) == 0 {
		fmt.Printf("no metrics with prefix %q\n", *prefix)
		return
	}
	for _, l := range lines {
		fmt.Println(l)
	}
}

// summarize 解析 Prometheus 文本格式，每个样本输出一行 name{labels} value
func summarize(body []byte, prefix string) ([]string, error) {
	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var out []string
	for name, mf := range families {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			out = append(out, fmt.Sprintf("%s%s %s", name, labels(m), value(mf.GetType(), m)))
		}
	}
	sort.Strings(out)
	return out, nil
}

func labels(m *dto.Metric) string {
	if len(m.GetLabel()) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func value(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%g", m.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%g", m.GetGauge().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		if h.GetSampleCount() == 0 {
			return "count=0"
		}
		return fmt.Sprintf("count=%d avg=%.4fs", h.GetSampleCount(), h.GetSampleSum()/float64(h.GetSampleCount()))
	default:
		return fmt.Sprintf("%g", m.GetUntyped().GetValue())
	}
}
